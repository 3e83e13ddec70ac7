package mention

import (
	"regexp"
	"strings"
	"sync"
)

const (
	// excluded from every query: quote, C0 and C1 controls, line separator
	excludedChars = `"\x00-\x1F\x7F-\x9F\x{2028}`

	// whitespace as browsers see it; contenteditable hosts type U+00A0 for spaces
	spaceChars = `\s\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`
	boundary   = `(?:^|[` + spaceChars + `])`

	quotedForm   = `"([^` + excludedChars + `]+?)"?`
	unquotedForm = `([^` + spaceChars + excludedChars + `]+?)"?`
)

type patternKind int

const (
	queryForm patternKind = iota
	symbolForm
	quotePrefix
)

type patternKey struct {
	trigger string
	kind    patternKind
	space   bool
}

var patternCache sync.Map

func compiled(key patternKey, build func() string) *regexp.Regexp {
	if re, ok := patternCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(build())
	actual, _ := patternCache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

func queryPattern(trigger string, shouldStartWithSpace bool) *regexp.Regexp {
	return compiled(patternKey{trigger: trigger, kind: queryForm, space: shouldStartWithSpace}, func() string {
		var b strings.Builder
		if shouldStartWithSpace {
			b.WriteString(boundary)
		}
		b.WriteString(regexp.QuoteMeta(trigger))
		b.WriteString(`(?:` + quotedForm + `|` + unquotedForm + `)(?:\n|$)`)
		return b.String()
	})
}

func symbolPattern(trigger string, shouldStartWithSpace bool) *regexp.Regexp {
	return compiled(patternKey{trigger: trigger, kind: symbolForm, space: shouldStartWithSpace}, func() string {
		prefix := ""
		if shouldStartWithSpace {
			prefix = boundary
		}
		flag := prefix + regexp.QuoteMeta(trigger)
		return flag + `([\w+\-]*)\n?$|` + flag + `([^\x00-\xff]*)\n?$`
	})
}

// lastLine returns the text after the final line break.
func lastLine(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return text[i+1:]
	}
	return text
}

// MatchQuery finds a trigger-prefixed query at the end of text. raw is the whole
// matched span, trigger and any boundary or quote included.
// Trigger sequences never span lines.
func MatchQuery(trigger, text string, shouldStartWithSpace bool) (query, raw string, ok bool) {
	if trigger == "" {
		return "", "", false
	}
	line := lastLine(text)
	m := queryPattern(trigger, shouldStartWithSpace).FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	if m[1] != "" {
		return m[1], m[0], true
	}
	return m[2], m[0], true
}

// MatchSymbol matches short symbolic sequences such as emoji shortcodes. The
// query may be empty when only the trigger has been typed.
func MatchSymbol(trigger, text string, shouldStartWithSpace bool) (string, bool) {
	if trigger == "" {
		return "", false
	}
	m := symbolPattern(trigger, shouldStartWithSpace).FindStringSubmatchIndex(text)
	if m == nil {
		return "", false
	}
	if m[2] >= 0 {
		return text[m[2]:m[3]], true
	}
	if m[4] >= 0 {
		return text[m[4]:m[5]], true
	}
	return "", true
}
