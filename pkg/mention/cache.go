package mention

import (
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// queryCache holds what one trigger has already fetched. Results and empties
// are disjoint: a key lives in at most one of them. Callers hold the session lock.
type queryCache struct {
	results *patricia.Trie // query -> []Candidate, never empty
	empties *patricia.Trie // query -> struct{}
}

func newQueryCache() *queryCache {
	return &queryCache{
		results: patricia.NewTrie(),
		empties: patricia.NewTrie(),
	}
}

// get returns the cached candidates for the exact query.
func (qc *queryCache) get(query string) ([]Candidate, bool) {
	if item := qc.results.Get(patricia.Prefix(query)); item != nil {
		return item.([]Candidate), true
	}
	if qc.empties.Match(patricia.Prefix(query)) {
		return []Candidate{}, true
	}
	return nil, false
}

// exhaustive finds the longest cached truncation of query (query included)
// whose result set is smaller than limit. Such a set already holds every
// candidate any extension of that truncation could return.
func (qc *queryCache) exhaustive(query string, limit int) (string, []Candidate, bool) {
	var (
		key   string
		found []Candidate
		ok    bool
	)
	err := qc.results.VisitPrefixes(patricia.Prefix(query), func(p patricia.Prefix, item patricia.Item) error {
		cands := item.([]Candidate)
		if len(cands) < limit {
			key, found, ok = string(p), cands, true
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting cached prefixes: %v", err)
		return "", nil, false
	}
	return key, found, ok
}

// knownEmpty reports whether some query known to yield nothing is a prefix of query.
func (qc *queryCache) knownEmpty(query string) bool {
	hit := false
	err := qc.empties.VisitPrefixes(patricia.Prefix(query), func(patricia.Prefix, patricia.Item) error {
		hit = true
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting empty prefixes: %v", err)
	}
	return hit
}

// put records a fetched result under the exact query.
func (qc *queryCache) put(query string, cands []Candidate) {
	key := patricia.Prefix(query)
	if len(cands) == 0 {
		qc.results.Delete(key)
		qc.empties.Set(key, struct{}{})
		return
	}
	qc.empties.Delete(key)
	qc.results.Set(key, cands)
}

func (qc *queryCache) stats() map[string]int {
	results, empties := 0, 0
	qc.results.Visit(func(patricia.Prefix, patricia.Item) error {
		results++
		return nil
	})
	qc.empties.Visit(func(patricia.Prefix, patricia.Item) error {
		empties++
		return nil
	})
	return map[string]int{
		"cachedQueries": results,
		"emptyQueries":  empties,
	}
}
