package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewWithConfigWritesPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "ipc", log.InfoLevel, false, false, log.TextFormatter)
	l.Info("ready", "pid", 42)

	out := buf.String()
	if !strings.Contains(out, "ipc") || !strings.Contains(out, "ready") || !strings.Contains(out, "pid=42") {
		t.Errorf("unexpected log line: %q", out)
	}
}

func TestNewWithConfigRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "", log.WarnLevel, false, false, log.TextFormatter)
	l.Debug("hidden")
	l.Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}
}

func TestNewFollowsGlobalFormatter(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(log.JSONFormatter)
	log.SetLevel(log.InfoLevel)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(log.TextFormatter)
		log.SetLevel(log.InfoLevel)
	}()

	New("server").Info("ready")

	out := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"server"`) || !strings.Contains(out, `"ready"`) {
		t.Errorf("expected a JSON line with the prefix, got %q", out)
	}
}
