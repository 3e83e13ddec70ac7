/*
Package mention implements trigger matching, candidate resolution and insertion
formatting for editor autocomplete.

A trigger is a single character such as '@' for user mentions or ':' for emoji.
Every keystroke the host editor hands the text before the caret to a Session:

	q, ok := sess.Match("@", textBeforeCaret, true)
	if ok {
		sess.Suggest(ctx, "@", q, func(d mention.Delivery) { render(d.Candidates) })
	}

Suggest answers from the session's caches when it can and only falls back to the
trigger's Lookup otherwise. The lookup caps its results at ServerLimit per call,
so a cached result smaller than that cap is exhaustive for every longer query
sharing its prefix; queries extending a known-empty prefix are answered empty.

When the user commits a candidate, Insert turns the candidate value into the
exact text to splice back into the buffer, quoting names that contain spaces or
punctuation:

	sess.Insert("@", "@Bob Smith") // `@"Bob Smith"`

Sessions are owned by one editor instance. Caches never shrink during a session
and are dropped with it.
*/
package mention

import "context"

// Candidate is a single selectable completion.
type Candidate struct {
	ID    string         `msgpack:"id" json:"id"`
	Name  string         `msgpack:"name" json:"name"`
	Extra map[string]any `msgpack:"x,omitempty" json:"-"`
}

// Lookup resolves a query to candidates. Implementations must not return more
// than limit candidates.
type Lookup interface {
	Lookup(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// LookupFunc adapts a plain function to Lookup.
type LookupFunc func(ctx context.Context, query string, limit int) ([]Candidate, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, query string, limit int) ([]Candidate, error) {
	return f(ctx, query, limit)
}

// Delivery is what Suggest hands to its callback.
type Delivery struct {
	Trigger    string
	Query      string
	RequestID  uint64
	Candidates []Candidate // shared with the cache, read only
	Cached     bool
}
