// Package cli handles cmd line input and suggestions for DBG and testing the mention matcher
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/mentionserve/pkg/mention"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	idStyle    = lipgloss.NewStyle().Faint(true)
	queryStyle = lipgloss.NewStyle().Bold(true)
)

// InputHandler reads lines as if they were the text before the caret of an
// editor, runs them through a mention session and prints what an editor
// would show. A line of the form "!N" commits the Nth suggestion shown last.
type InputHandler struct {
	session *mention.Session
	// symbols are matched with the short symbol form, the rest as queries
	symbols        map[string]bool
	triggers       []string
	startWithSpace bool
	wait           time.Duration

	in     io.Reader
	logger *log.Logger

	lastTrigger string
	last        []mention.Candidate
}

// NewInputHandler wraps sess. triggers are tried in order on every line.
func NewInputHandler(sess *mention.Session, triggers []string, symbols []string, startWithSpace bool, wait time.Duration) *InputHandler {
	h := &InputHandler{
		session:        sess,
		symbols:        make(map[string]bool, len(symbols)),
		triggers:       triggers,
		startWithSpace: startWithSpace,
		wait:           wait,
	}
	for _, s := range symbols {
		h.symbols[s] = true
	}
	h.SetIO(os.Stdin, os.Stderr)
	return h
}

// SetIO replaces stdin and the output writer.
func (h *InputHandler) SetIO(r io.Reader, w io.Writer) {
	h.in = r
	h.logger = log.NewWithOptions(w, log.Options{ReportTimestamp: false})
}

// Start runs the loop until the input ends.
func (h *InputHandler) Start() error {
	h.logger.Print("MentionServe CLI [BETA]")
	h.logger.Print("type text as if before the caret, e.g. 'hi @bo', or !N to pick (Ctrl+C to exit):")

	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		h.handleInput(line)
	}
	return scanner.Err()
}

func (h *InputHandler) handleInput(line string) {
	if n, ok := strings.CutPrefix(strings.TrimSpace(line), "!"); ok {
		h.pick(n)
		return
	}

	for _, trigger := range h.triggers {
		var query string
		var ok bool
		if h.symbols[trigger] {
			query, ok = mention.MatchSymbol(trigger, line, h.startWithSpace)
		} else {
			query, ok = h.session.Match(trigger, line, h.startWithSpace)
		}
		if !ok {
			continue
		}
		log.Debug("matched", "trigger", trigger, "query", query, "raw", h.session.RawMatch())
		h.suggest(trigger, query)
		return
	}
	h.logger.Warnf("No trigger matched: '%s'", line)
}

func (h *InputHandler) suggest(trigger, query string) {
	if len([]rune(query)) < h.session.Options().MinChars {
		h.logger.Printf("%s%s: need %d characters", trigger, queryStyle.Render(query), h.session.Options().MinChars)
		return
	}

	got := make(chan mention.Delivery, 1)
	start := time.Now()
	err := h.session.Suggest(context.Background(), trigger, query, func(d mention.Delivery) {
		select {
		case got <- d:
		default:
		}
	})
	if err != nil {
		h.logger.Errorf("Suggest failed: %v", err)
		return
	}

	select {
	case d := <-got:
		h.show(d, time.Since(start))
	case <-time.After(h.wait):
		h.logger.Warnf("No answer for '%s%s' within %v", trigger, query, h.wait)
	}
}

func (h *InputHandler) show(d mention.Delivery, took time.Duration) {
	cands := mention.Filter(d.Candidates, d.Query)
	if maxItems := h.session.Options().MaxItems; len(cands) > maxItems {
		cands = cands[:maxItems]
	}
	h.lastTrigger = d.Trigger
	h.last = cands

	if len(cands) == 0 {
		h.logger.Warnf("No suggestions for '%s%s'", d.Trigger, d.Query)
		return
	}
	h.logger.Printf("Found %d suggestions for '%s%s' (cached: %t, %v):", len(cands), d.Trigger, queryStyle.Render(d.Query), d.Cached, took)
	for i, c := range cands {
		h.logger.Printf("%2d. %-40s %s", i+1, nameStyle.Render(c.Name), idStyle.Render("id="+c.ID))
	}
}

func (h *InputHandler) pick(arg string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(h.last) {
		h.logger.Errorf("Pick a number between 1 and %d", len(h.last))
		return
	}
	c := h.last[n-1]
	var insert string
	if h.symbols[h.lastTrigger] {
		insert = mention.FormatSymbol(h.lastTrigger, c.Name)
	} else {
		insert = h.session.Insert(h.lastTrigger, h.lastTrigger+c.Name)
	}
	h.logger.Printf("insert: %s", insert)
}
