package mention

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Filter keeps the candidates whose name contains query, ignoring case, and
// orders them by where the match starts; ties keep their order. Names are
// escaped, so query is escaped the same way before comparing. The input slice
// is not modified.
//
// Hosts run it on every delivery before cutting the list to MaxItems: a set
// reused from a shorter cached query still holds names the longer query rules
// out.
func Filter(candidates []Candidate, query string) []Candidate {
	if query == "" {
		return candidates
	}
	folder := cases.Fold()
	q := folder.String(SanitizeName(query))

	type hit struct {
		c  Candidate
		at int
	}
	hits := make([]hit, 0, len(candidates))
	for _, c := range candidates {
		if at := strings.Index(folder.String(c.Name), q); at >= 0 {
			hits = append(hits, hit{c: c, at: at})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}
