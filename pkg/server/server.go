package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/bastiangx/mentionserve/pkg/config"
	"github.com/bastiangx/mentionserve/pkg/emoji"
	"github.com/bastiangx/mentionserve/pkg/lookup"
	"github.com/bastiangx/mentionserve/pkg/mention"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// UserTrigger starts a user mention.
	UserTrigger = "@"
	// EmojiTrigger starts an emoji shortcode.
	EmojiTrigger = ":"
)

// isSymbol reports whether trigger completes short symbols rather than names.
func isSymbol(trigger string) bool {
	return trigger == EmojiTrigger
}

// Server handles the IPC for mention completions
type Server struct {
	cfgMu      sync.RWMutex
	config     *config.Config
	configPath string
	lookups    map[string]mention.Lookup
	pinned     map[string]bool
	emoji      *emoji.Table

	mu       sync.Mutex
	sessions map[string]*mention.Session

	dec   *msgpack.Decoder
	encMu sync.Mutex
	enc   *msgpack.Encoder

	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
}

// NewServer creates a server on stdin/stdout. The user lookup is built from
// the [lookup] section; without a usable base url only emoji are served.
func NewServer(cfg *config.Config, configPath string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		configPath: configPath,
		pinned:     make(map[string]bool),
		emoji:      emoji.NewTable(cfg.Emoji.Table, cfg.Emoji.AssetPath, cfg.Emoji.Template),
		sessions:   make(map[string]*mention.Session),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.New("server"),
	}
	s.SetIO(os.Stdin, os.Stdout)
	s.ApplyConfig(cfg)
	return s
}

// SetIO replaces the transport. It must be called before Start.
func (s *Server) SetIO(r io.Reader, w io.Writer) {
	s.dec = msgpack.NewDecoder(r)
	s.enc = msgpack.NewEncoder(w)
}

// SetLookup serves trigger from l for sessions attached afterwards. Config
// reloads leave it in place.
func (s *Server) SetLookup(trigger string, l mention.Lookup) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.lookups[trigger] = l
	s.pinned[trigger] = true
}

// ApplyConfig swaps in cfg. Attached sessions keep their options and sources.
func (s *Server) ApplyConfig(cfg *config.Config) {
	lookups := map[string]mention.Lookup{EmojiTrigger: s.emoji}
	if client, err := lookup.New(cfg.LookupOptions()); err != nil {
		s.logger.Warn("user lookup disabled", "err", err)
	} else {
		s.logger.Debug("user lookup", "endpoint", client.Endpoint())
		lookups[UserTrigger] = client
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	for trigger := range s.pinned {
		lookups[trigger] = s.lookups[trigger]
	}
	s.config = cfg
	s.lookups = lookups
	s.emoji.Reset(cfg.Emoji.Table, cfg.Emoji.AssetPath, cfg.Emoji.Template)
}

func (s *Server) currentConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.config
}

// Start begins listening for IPC requests. It returns nil when the input
// ends, after every session has been closed.
func (s *Server) Start() error {
	s.logger.Debug("Starting Server.")
	defer s.shutdown()

	s.send(StatusResponse{Status: "ready"})

	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("server: decode request: %w", err)
		}
		s.handleRequest(req)
	}
}

func (s *Server) shutdown() {
	s.cancel()
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*mention.Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *Server) handleRequest(req Request) {
	switch req.Action {
	case "attach":
		s.handleAttach(req)
	case "detach":
		s.handleDetach(req)
	case "match":
		s.handleMatch(req, false)
	case "symbol":
		s.handleMatch(req, true)
	case "suggest":
		s.handleSuggest(req)
	case "insert":
		s.handleInsert(req)
	case "highlight":
		s.send(TextResponse{ID: req.ID, Text: mention.NewHighlighter(req.Query).Highlight(req.Item)})
	case "emoji":
		s.send(TextResponse{ID: req.ID, Text: s.emoji.Render(strings.Trim(req.Value, ":"))})
	case "config":
		s.handleConfig(req)
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %q", req.Action), 400)
	}
}

func (s *Server) handleAttach(req Request) {
	s.cfgMu.RLock()
	opts := s.config.MentionOptions()
	lookups := make(map[string]mention.Lookup, len(s.lookups))
	triggers := make([]string, 0, len(s.lookups))
	for trigger, l := range s.lookups {
		lookups[trigger] = l
		triggers = append(triggers, trigger)
	}
	s.cfgMu.RUnlock()
	sort.Strings(triggers)

	id := uuid.NewString()
	sess := mention.NewSession(opts, lookups)
	sess.SetLogger(logger.New("mention " + id[:8]))

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Debug("attached", "sid", id, "triggers", triggers)
	s.send(AttachResponse{ID: req.ID, Session: id, Triggers: triggers})
}

func (s *Server) handleDetach(req Request) {
	s.mu.Lock()
	sess, ok := s.sessions[req.Session]
	delete(s.sessions, req.Session)
	s.mu.Unlock()
	if !ok {
		s.sendError(req.ID, "unknown session", 404)
		return
	}
	sess.Close()
	s.logger.Debug("detached", "sid", req.Session)
	s.send(StatusResponse{ID: req.ID, Status: "ok"})
}

func (s *Server) session(req Request) (*mention.Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[req.Session]
	s.mu.Unlock()
	if !ok {
		s.sendError(req.ID, "unknown session", 404)
	}
	return sess, ok
}

func (s *Server) handleMatch(req Request, symbol bool) {
	sess, ok := s.session(req)
	if !ok {
		return
	}
	if req.Trigger == "" {
		s.sendError(req.ID, "missing trigger", 400)
		return
	}
	space := s.currentConfig().Mention.ShouldStartWithSpace
	if req.Space != nil {
		space = *req.Space
	}

	var query string
	if symbol {
		query, ok = mention.MatchSymbol(req.Trigger, req.Text, space)
	} else {
		query, ok = sess.Match(req.Trigger, req.Text, space)
	}
	s.send(MatchResponse{ID: req.ID, Trigger: req.Trigger, Query: query, OK: ok})
}

func (s *Server) handleSuggest(req Request) {
	sess, ok := s.session(req)
	if !ok {
		return
	}
	start := time.Now()
	maxItems := sess.Options().MaxItems

	err := sess.Suggest(s.ctx, req.Trigger, req.Query, func(d mention.Delivery) {
		// a reused shorter-query set is filtered before the cut, not after
		cands := mention.Filter(d.Candidates, d.Query)
		if len(cands) > maxItems {
			cands = cands[:maxItems]
		}
		var hl *mention.Highlighter
		if req.Render {
			hl = mention.NewHighlighter(d.Query)
		}
		out := make([]Suggestion, len(cands))
		for i, c := range cands {
			out[i] = Suggestion{ID: c.ID, Name: c.Name, Extra: c.Extra}
			if hl != nil {
				out[i].Markup = hl.Highlight(s.renderItem(d.Trigger, c))
			}
		}
		s.send(SuggestResponse{
			ID:          req.ID,
			Trigger:     d.Trigger,
			Query:       d.Query,
			RequestID:   d.RequestID,
			Suggestions: out,
			Count:       len(out),
			Cached:      d.Cached,
			TimeTaken:   time.Since(start).Microseconds(),
		})
	})
	switch {
	case errors.Is(err, mention.ErrUnknownTrigger):
		s.sendError(req.ID, fmt.Sprintf("no source for trigger %q", req.Trigger), 404)
	case errors.Is(err, mention.ErrClosed):
		s.sendError(req.ID, "session closed", 410)
	case err != nil:
		s.sendError(req.ID, err.Error(), 500)
	}
}

// renderItem builds the list item for c. Names arrive already escaped.
func (s *Server) renderItem(trigger string, c mention.Candidate) string {
	if isSymbol(trigger) {
		return `<li data-value="` + mention.FormatSymbol(trigger, c.Name) + `">` + s.emoji.Render(c.Name) + " " + c.Name + "</li>"
	}
	return `<li data-value="` + trigger + c.Name + `">` + c.Name + "</li>"
}

func (s *Server) handleInsert(req Request) {
	sess, ok := s.session(req)
	if !ok {
		return
	}
	if req.Trigger == "" {
		s.sendError(req.ID, "missing trigger", 400)
		return
	}
	var text string
	if isSymbol(req.Trigger) {
		text = mention.FormatSymbol(req.Trigger, req.Value)
	} else {
		text = sess.Insert(req.Trigger, req.Value)
	}
	s.send(TextResponse{ID: req.ID, Text: text})
}

func (s *Server) handleConfig(req Request) {
	s.cfgMu.Lock()
	next := *s.config
	if err := next.Update(s.configPath, req.MinChars, req.MaxItems, req.ServerLimit, req.StartWithSpace); err != nil {
		// applied for this process even if the file could not be written
		s.logger.Warn("saving config failed", "path", s.configPath, "err", err)
	}
	s.config = &next
	s.cfgMu.Unlock()

	m := next.Mention
	s.send(ConfigResponse{
		ID:                   req.ID,
		Status:               "ok",
		MinChars:             m.MinChars,
		MaxItems:             m.MaxItems,
		ServerLimit:          m.ServerLimit,
		ShouldStartWithSpace: m.ShouldStartWithSpace,
	})
}

// send encodes one frame. Suggest deliveries call it from lookup goroutines.
func (s *Server) send(frame any) {
	s.encMu.Lock()
	defer s.encMu.Unlock()
	if err := s.enc.Encode(frame); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.logger.Debug("request failed", "id", id, "err", message, "code", code)
	s.send(CompletionError{ID: id, Error: message, Code: code})
}

// SessionCount returns the number of attached sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
