package mention

import (
	"regexp"
	"strings"
)

var (
	// single pass, same result as escaping & first and the rest after it
	nameEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)

	plainName = regexp.MustCompile(`^[\w-]+$`)
)

// SanitizeName escapes the HTML metacharacters of a display name.
func SanitizeName(name string) string {
	return nameEscaper.Replace(name)
}

// sanitize returns a copy of candidates with escaped names.
func sanitize(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Name = SanitizeName(c.Name)
		out[i] = c
	}
	return out
}

func isQuoted(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`)
}

// FormatInsertion builds the text spliced into the buffer when value (trigger
// included) is committed. raw is the last span seen by the matcher; when the
// user already typed the trigger followed by a quote, the trigger is not
// repeated.
func FormatInsertion(trigger, value, raw string) string {
	name := strings.TrimPrefix(value, trigger)

	if name != "" && !plainName.MatchString(name) && !isQuoted(name) {
		name = `"` + name + `"`
	}

	if typedQuote(trigger, raw) {
		return name
	}
	return trigger + name
}

// FormatSymbol builds the insertion for a symbolic trigger such as an emoji
// shortcode: the name wrapped in the trigger, never quoted. value may carry the
// trigger on either side.
func FormatSymbol(trigger, value string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(value, trigger), trigger)
	return trigger + name + trigger
}

func typedQuote(trigger, raw string) bool {
	if trigger == "" || raw == "" {
		return false
	}
	return compiled(patternKey{trigger: trigger, kind: quotePrefix}, func() string {
		return `^.?` + regexp.QuoteMeta(trigger) + `"`
	}).MatchString(raw)
}

// Highlighter wraps the first case-insensitive occurrence of a query inside
// the text of rendered items with <strong>. Build one per query and reuse it
// for every item of a list.
type Highlighter struct {
	re *regexp.Regexp
}

// NewHighlighter compiles the pattern for query. An empty query highlights
// nothing.
func NewHighlighter(query string) *Highlighter {
	if query == "" {
		return &Highlighter{}
	}
	return &Highlighter{re: regexp.MustCompile(`(?i)>[^<]*?(` + regexp.QuoteMeta(query) + `)[^<]*<`)}
}

// Highlight marks the match in item. Items without a match come back as is.
func (h *Highlighter) Highlight(item string) string {
	if h.re == nil {
		return item
	}
	m := h.re.FindStringSubmatchIndex(item)
	if m == nil {
		return item
	}
	var b strings.Builder
	b.Grow(len(item) + len("<strong></strong>"))
	b.WriteString(item[:m[2]])
	b.WriteString("<strong>")
	b.WriteString(item[m[2]:m[3]])
	b.WriteString("</strong>")
	b.WriteString(item[m[3]:])
	return b.String()
}

// Highlight is NewHighlighter(query).Highlight(item) for a single item.
func Highlight(item, query string) string {
	return NewHighlighter(query).Highlight(item)
}
