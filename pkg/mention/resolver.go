package mention

import (
	"context"
	"errors"
	"unicode/utf8"
)

var (
	// ErrUnknownTrigger is returned for a trigger the session has no Lookup for.
	ErrUnknownTrigger = errors.New("mention: unknown trigger")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("mention: session closed")
)

// Suggest resolves query for trigger and hands the result to deliver. Answers
// the caches can give are delivered before Suggest returns; otherwise one
// lookup runs in the background and deliver is called when it completes,
// unless a newer Suggest for the same trigger was issued meanwhile. A failed
// lookup never calls deliver.
//
// Queries shorter than MinChars are ignored.
func (s *Session) Suggest(ctx context.Context, trigger, query string, deliver func(Delivery)) error {
	if utf8.RuneCountInString(query) < s.opts.MinChars {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	st, ok := s.triggers[trigger]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownTrigger
	}
	s.seq++
	id := s.seq
	st.latest = id

	d := Delivery{Trigger: trigger, Query: query, RequestID: id, Cached: true}
	if key, cands, ok := st.cache.exhaustive(query, s.opts.ServerLimit); ok {
		s.mu.Unlock()
		s.logger.Debug("exhaustive cache hit", "trigger", trigger, "query", query, "key", key, "count", len(cands))
		d.Candidates = cands
		deliver(d)
		return nil
	}
	if st.cache.knownEmpty(query) {
		s.mu.Unlock()
		s.logger.Debug("known empty prefix", "trigger", trigger, "query", query)
		d.Candidates = []Candidate{}
		deliver(d)
		return nil
	}
	if cands, ok := st.cache.get(query); ok {
		s.mu.Unlock()
		d.Candidates = cands
		deliver(d)
		return nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.fetch(ctx, st, id, trigger, query, deliver)
	return nil
}

func (s *Session) fetch(ctx context.Context, st *triggerState, id uint64, trigger, query string, deliver func(Delivery)) {
	defer s.wg.Done()

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.logger.Debug("lookup", "trigger", trigger, "query", query, "id", id)
	cands, err := st.lookup.Lookup(lctx, query, s.opts.ServerLimit)
	if err != nil {
		s.logger.Warn("lookup failed", "trigger", trigger, "query", query, "err", err)
		return
	}
	cands = sanitize(cands)

	s.mu.Lock()
	st.cache.put(query, cands)
	stale := st.latest != id || s.closed
	s.mu.Unlock()

	if stale {
		s.logger.Debug("dropping stale response", "trigger", trigger, "query", query, "id", id)
		return
	}
	deliver(Delivery{Trigger: trigger, Query: query, RequestID: id, Candidates: cands})
}
