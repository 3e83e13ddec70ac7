package mention

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Options tune a Session. Zero fields fall back to DefaultOptions.
type Options struct {
	// MinChars is the shortest query that may reach a Lookup.
	MinChars int
	// ServerLimit is the most candidates a Lookup returns per call.
	ServerLimit int
	// MaxItems caps how many candidates a host renders.
	MaxItems int
}

// DefaultOptions mirror the forum editor's defaults.
func DefaultOptions() Options {
	return Options{
		MinChars:    2,
		ServerLimit: 30,
		MaxItems:    5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinChars <= 0 {
		o.MinChars = d.MinChars
	}
	if o.ServerLimit <= 0 {
		o.ServerLimit = d.ServerLimit
	}
	if o.MaxItems <= 0 {
		o.MaxItems = d.MaxItems
	}
	return o
}

// triggerState is everything one trigger owns inside a session.
type triggerState struct {
	lookup Lookup
	cache  *queryCache
	latest uint64 // id of the most recently issued lookup
}

// Session is the autocomplete state of one attached editor.
type Session struct {
	opts   Options
	logger *log.Logger

	mu       sync.Mutex
	triggers map[string]*triggerState
	raw      string
	seq      uint64
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates the state for one editor. lookups maps each trigger to
// its candidate source.
func NewSession(opts Options, lookups map[string]Lookup) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:     opts.withDefaults(),
		logger:   log.Default().WithPrefix("mention"),
		triggers: make(map[string]*triggerState, len(lookups)),
		ctx:      ctx,
		cancel:   cancel,
	}
	for trigger, l := range lookups {
		s.triggers[trigger] = &triggerState{lookup: l, cache: newQueryCache()}
	}
	return s
}

// SetLogger replaces the session logger.
func (s *Session) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Options returns the effective options.
func (s *Session) Options() Options {
	return s.opts
}

// Match extracts the query after trigger at the end of text and remembers the
// matched span for the next Insert. A failed match leaves that span untouched.
func (s *Session) Match(trigger, text string, shouldStartWithSpace bool) (string, bool) {
	query, raw, ok := MatchQuery(trigger, text, shouldStartWithSpace)
	if !ok {
		return "", false
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return query, true
}

// RawMatch returns the span recorded by the last successful Match.
func (s *Session) RawMatch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Insert formats a committed candidate value for trigger.
func (s *Session) Insert(trigger, value string) string {
	return FormatInsertion(trigger, value, s.RawMatch())
}

// Close cancels in-flight lookups and waits for them to return. Callbacks
// are not invoked after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Stats reports cache sizes per trigger.
func (s *Session) Stats() map[string]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]int, len(s.triggers))
	for trigger, st := range s.triggers {
		stats := st.cache.stats()
		stats["lastRequest"] = int(st.latest)
		out[trigger] = stats
	}
	return out
}
