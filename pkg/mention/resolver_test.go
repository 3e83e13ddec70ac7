package mention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeLookup answers from a fixed table and counts calls.
type fakeLookup struct {
	mu      sync.Mutex
	results map[string][]Candidate
	calls   []string
	gate    map[string]chan struct{}
	err     error
}

func newFakeLookup(results map[string][]Candidate) *fakeLookup {
	return &fakeLookup{results: results, gate: make(map[string]chan struct{})}
}

func (f *fakeLookup) Lookup(ctx context.Context, query string, limit int) ([]Candidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	gate := f.gate[query]
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func names(n int, prefix string) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{ID: fmt.Sprint(i + 1), Name: fmt.Sprintf("%s%d", prefix, i)}
	}
	return out
}

// collector gathers deliveries, including the ones made from goroutines.
type collector struct {
	ch chan Delivery
}

func newCollector() *collector {
	return &collector{ch: make(chan Delivery, 16)}
}

func (c *collector) deliver(d Delivery) { c.ch <- d }

func (c *collector) next(t *testing.T) Delivery {
	t.Helper()
	select {
	case d := <-c.ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
		return Delivery{}
	}
}

func (c *collector) none(t *testing.T) {
	t.Helper()
	select {
	case d := <-c.ch:
		t.Fatalf("unexpected delivery for %q", d.Query)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSuggestBelowMinChars(t *testing.T) {
	lookup := newFakeLookup(nil)
	sess := NewSession(Options{MinChars: 2}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "a", c.deliver))
	c.none(t)
	assert.Zero(t, lookup.callCount())
}

func TestSuggestFetchesAndCaches(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{"bo": names(3, "bob")})
	sess := NewSession(Options{ServerLimit: 30}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "bo", c.deliver))
	d := c.next(t)
	assert.False(t, d.Cached)
	assert.Len(t, d.Candidates, 3)

	require.NoError(t, sess.Suggest(context.Background(), "@", "bo", c.deliver))
	d = c.next(t)
	assert.True(t, d.Cached)
	assert.Equal(t, 1, lookup.callCount())
}

// a short result set is complete for every longer query sharing the prefix
func TestSuggestExhaustivePrefix(t *testing.T) {
	cached := names(3, "ab")
	lookup := newFakeLookup(map[string][]Candidate{"ab": cached})
	sess := NewSession(Options{ServerLimit: 30}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "ab", c.deliver))
	c.next(t)

	require.NoError(t, sess.Suggest(context.Background(), "@", "abc", c.deliver))
	d := c.next(t)
	assert.True(t, d.Cached)
	assert.Equal(t, cached, d.Candidates)
	assert.Equal(t, 1, lookup.callCount(), "abc must not reach the lookup")
}

func TestSuggestFullPageIsNotExhaustive(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{
		"ab":  names(5, "ab"),
		"abc": names(2, "abc"),
	})
	sess := NewSession(Options{ServerLimit: 5}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "ab", c.deliver))
	c.next(t)
	require.NoError(t, sess.Suggest(context.Background(), "@", "abc", c.deliver))
	d := c.next(t)
	assert.False(t, d.Cached)
	assert.Len(t, d.Candidates, 2)
	assert.Equal(t, 2, lookup.callCount())
}

// the longest short truncation wins, not the last one visited
func TestSuggestUsesMatchingTruncation(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{
		"ab":   names(4, "ab"),
		"abcd": names(2, "abcd"),
	})
	sess := NewSession(Options{ServerLimit: 30}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	for _, q := range []string{"ab", "abcd"} {
		require.NoError(t, sess.Suggest(context.Background(), "@", q, c.deliver))
		c.next(t)
	}
	require.NoError(t, sess.Suggest(context.Background(), "@", "abcde", c.deliver))
	d := c.next(t)
	assert.Equal(t, lookup.results["abcd"], d.Candidates)
}

func TestSuggestKnownEmptyPrefix(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{})
	sess := NewSession(Options{}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "xq", c.deliver))
	d := c.next(t)
	assert.Empty(t, d.Candidates)

	require.NoError(t, sess.Suggest(context.Background(), "@", "xqz", c.deliver))
	d = c.next(t)
	assert.True(t, d.Cached)
	assert.NotNil(t, d.Candidates)
	assert.Empty(t, d.Candidates)
	assert.Equal(t, 1, lookup.callCount())
}

func TestSuggestSanitizesNames(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{
		"bo": {
			{ID: "7", Name: `Bob & "Smith" <3>`, Extra: map[string]any{"photo": "b.png"}},
			{ID: "8"},
		},
	})
	sess := NewSession(Options{}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "bo", c.deliver))
	d := c.next(t)
	require.Len(t, d.Candidates, 2)
	assert.Equal(t, "Bob &amp; &quot;Smith&quot; &lt;3&gt;", d.Candidates[0].Name)
	assert.Equal(t, "b.png", d.Candidates[0].Extra["photo"])
	assert.Equal(t, Candidate{ID: "8"}, d.Candidates[1])
	assert.Equal(t, `Bob & "Smith" <3>`, lookup.results["bo"][0].Name, "lookup data is not mutated")
}

func TestSuggestDropsStaleResponse(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{
		"bo":  names(30, "bo"),
		"bob": names(1, "bob"),
	})
	release := make(chan struct{})
	lookup.gate["bo"] = release
	sess := NewSession(Options{ServerLimit: 30}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "bo", c.deliver))
	require.NoError(t, sess.Suggest(context.Background(), "@", "bob", c.deliver))

	d := c.next(t)
	assert.Equal(t, "bob", d.Query)

	close(release)
	c.none(t)

	// the late answer still lands in the cache
	require.Eventually(t, func() bool {
		return sess.Stats()["@"]["cachedQueries"] == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSuggestTriggersAreIndependent(t *testing.T) {
	users := newFakeLookup(map[string][]Candidate{})
	emoji := newFakeLookup(map[string][]Candidate{"sm": names(2, "smile")})
	sess := NewSession(Options{}, map[string]Lookup{"@": users, ":": emoji})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "sm", c.deliver))
	assert.Empty(t, c.next(t).Candidates)

	require.NoError(t, sess.Suggest(context.Background(), ":", "smi", c.deliver))
	d := c.next(t)
	assert.Len(t, d.Candidates, 0, "smi is fetched, not pruned by the @ cache")
	assert.Equal(t, 1, emoji.callCount())
}

func TestSuggestLookupFailure(t *testing.T) {
	lookup := newFakeLookup(nil)
	lookup.err = errors.New("connection refused")
	sess := NewSession(Options{}, map[string]Lookup{"@": lookup})
	defer sess.Close()

	c := newCollector()
	require.NoError(t, sess.Suggest(context.Background(), "@", "bo", c.deliver))
	c.none(t)

	stats := sess.Stats()["@"]
	assert.Zero(t, stats["cachedQueries"])
	assert.Zero(t, stats["emptyQueries"])
}

func TestSuggestUnknownTrigger(t *testing.T) {
	sess := NewSession(Options{}, nil)
	defer sess.Close()
	err := sess.Suggest(context.Background(), "#", "tag", func(Delivery) {})
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestCloseCancelsInFlight(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{"bo": names(1, "bo")})
	lookup.gate["bo"] = make(chan struct{})
	sess := NewSession(Options{}, map[string]Lookup{"@": lookup})

	var delivered atomic.Bool
	require.NoError(t, sess.Suggest(context.Background(), "@", "bo", func(Delivery) { delivered.Store(true) }))

	require.Eventually(t, func() bool { return lookup.callCount() == 1 }, time.Second, 5*time.Millisecond)
	sess.Close()

	assert.False(t, delivered.Load())
	assert.ErrorIs(t, sess.Suggest(context.Background(), "@", "bo", func(Delivery) {}), ErrClosed)
}

func TestSessionsDoNotShareCaches(t *testing.T) {
	lookup := newFakeLookup(map[string][]Candidate{"bo": names(1, "bo")})
	a := NewSession(Options{}, map[string]Lookup{"@": lookup})
	b := NewSession(Options{}, map[string]Lookup{"@": lookup})
	defer a.Close()
	defer b.Close()

	c := newCollector()
	require.NoError(t, a.Suggest(context.Background(), "@", "bo", c.deliver))
	c.next(t)
	require.NoError(t, b.Suggest(context.Background(), "@", "bo", c.deliver))
	assert.False(t, c.next(t).Cached)
	assert.Equal(t, 2, lookup.callCount())
}
