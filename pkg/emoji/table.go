// Package emoji serves emoji shortcode completions from a static table.
package emoji

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bastiangx/mentionserve/pkg/mention"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultTemplate renders an emoji as an image tag.
const DefaultTemplate = `<img class="emoji" src="{assetPath}/{filename}" title=":{name}:" alt=":{name}:" height="20" />`

// defaultTable is the stock set shipped with the editor.
var defaultTable = map[string]string{
	"smile":      "smile.png",
	"smiley":     "smiley.png",
	"wink":       "wink.png",
	"grin":       "grin.png",
	"laughing":   "laughing.png",
	"blush":      "blush.png",
	"heart":      "heart.png",
	"broken":     "broken_heart.png",
	"cry":        "cry.png",
	"angry":      "angry.png",
	"confused":   "confused.png",
	"surprised":  "surprised.png",
	"sunglasses": "sunglasses.png",
	"thumbsup":   "thumbsup.png",
	"+1":         "thumbsup.png",
	"thumbsdown": "thumbsdown.png",
	"-1":         "thumbsdown.png",
	"tongue":     "tongue.png",
	"star":       "star.png",
	"fire":       "fire.png",
}

// DefaultTable returns a copy of the stock table.
func DefaultTable() map[string]string {
	out := make(map[string]string, len(defaultTable))
	for k, v := range defaultTable {
		out[k] = v
	}
	return out
}

// Table maps shortcodes to image files.
type Table struct {
	mu        sync.RWMutex
	files     map[string]string
	trie      *patricia.Trie
	assetPath string
	template  string
}

// NewTable builds a table. An empty template falls back to DefaultTemplate.
func NewTable(files map[string]string, assetPath, template string) *Table {
	t := &Table{}
	t.Reset(files, assetPath, template)
	return t
}

// Reset swaps the table contents, used on config reload.
func (t *Table) Reset(files map[string]string, assetPath, template string) {
	if template == "" {
		template = DefaultTemplate
	}
	trie := patricia.NewTrie()
	copied := make(map[string]string, len(files))
	for name, file := range files {
		if name == "" || file == "" {
			continue
		}
		trie.Set(patricia.Prefix(name), file)
		copied[name] = file
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = copied
	t.trie = trie
	t.assetPath = strings.TrimRight(assetPath, "/")
	t.template = template
}

// Len returns the number of shortcodes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}

// Lookup implements mention.Lookup; results come back in shortcode order.
func (t *Table) Lookup(_ context.Context, query string, limit int) ([]mention.Candidate, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []mention.Candidate
	err := t.trie.VisitSubtree(patricia.Prefix(query), func(p patricia.Prefix, item patricia.Item) error {
		file := item.(string)
		out = append(out, mention.Candidate{
			ID:    string(p),
			Name:  string(p),
			Extra: map[string]any{"filename": file},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Render fills the markup template for name. Unknown names render as the
// plain :name: text.
func (t *Table) Render(name string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	file, ok := t.files[name]
	if !ok {
		return ":" + name + ":"
	}
	return strings.NewReplacer(
		"{assetPath}", t.assetPath,
		"{filename}", file,
		"{name}", name,
	).Replace(t.template)
}
