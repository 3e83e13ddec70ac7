// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New derives a prefixed logger from the global one, so it shares the output,
// level and formatter chosen by Setup.
func New(prefix string) *log.Logger {
	return log.Default().WithPrefix(prefix)
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// Setup configures the global logger: debug shows everything with timestamps,
// otherwise only warnings and errors. json switches to structured output.
func Setup(debug, json bool) {
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
		log.SetReportTimestamp(false)
	}
	if json {
		log.SetFormatter(log.JSONFormatter)
	}
}
