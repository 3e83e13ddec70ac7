package directory

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/cases"
)

// fold normalizes a name for case-insensitive prefix search.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Index is an in-memory prefix index over user names.
type Index struct {
	mu    sync.RWMutex
	trie  *patricia.Trie // folded name -> []User
	count int
}

// NewIndex builds an index over users.
func NewIndex(users []User) *Index {
	idx := &Index{trie: patricia.NewTrie()}
	for _, u := range users {
		idx.insertLocked(u)
	}
	return idx
}

func (idx *Index) insertLocked(u User) {
	key := patricia.Prefix(fold(u.Name))
	if item := idx.trie.Get(key); item != nil {
		idx.trie.Set(key, append(item.([]User), u))
	} else {
		idx.trie.Insert(key, []User{u})
	}
	idx.count++
}

// Add indexes one user.
func (idx *Index) Add(u User) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insertLocked(u)
}

// Remove drops a user from the index.
func (idx *Index) Remove(u User) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := patricia.Prefix(fold(u.Name))
	item := idx.trie.Get(key)
	if item == nil {
		return
	}
	users := item.([]User)
	kept := make([]User, 0, len(users))
	for _, other := range users {
		if other.ID != u.ID {
			kept = append(kept, other)
		}
	}
	idx.count -= len(users) - len(kept)
	if len(kept) == 0 {
		idx.trie.Delete(key)
		return
	}
	idx.trie.Set(key, kept)
}

// Len returns the number of indexed users.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// Search returns up to limit users whose name starts with query, ignoring
// case, ordered by name then id.
func (idx *Index) Search(query string, limit int) []User {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []User
	err := idx.trie.VisitSubtree(patricia.Prefix(fold(query)), func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.([]User)...)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting directory index: %v", err)
		return nil
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
