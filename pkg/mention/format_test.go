package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Bob &amp; &quot;Smith&quot; &lt;3&gt;", SanitizeName(`Bob & "Smith" <3>`))
	assert.Equal(t, "O&#039;Brien", SanitizeName("O'Brien"))
	assert.Equal(t, "&amp;lt;", SanitizeName("&lt;"), "ampersands are escaped before the rest")
	assert.Equal(t, "plain", SanitizeName("plain"))
}

func TestFormatInsertion(t *testing.T) {
	testCases := []struct {
		description string
		value       string
		raw         string
		expected    string
	}{
		{"Simple name", "@bob", "@bo", "@bob"},
		{"Hyphen and digits", "@bob-2_x", " @bob", "@bob-2_x"},
		{"Space needs quotes", "@Bob Smith", "", `@"Bob Smith"`},
		{"Punctuation needs quotes", "@bob.smith", " @bob", `@"bob.smith"`},
		{"Already quoted", `@"Bob Smith"`, "", `@"Bob Smith"`},
		{"Quote typed after trigger", "@Bob Smith", `@"Bo`, `"Bob Smith"`},
		{"Quote typed after boundary", "@Bob Smith", ` @"Bo`, `"Bob Smith"`},
		{"Plain name after typed quote", "@bob", `@"bo`, "bob"},
		{"Quote far from trigger", "@Bob Smith", `xx@"Bo`, `@"Bob Smith"`},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := FormatInsertion("@", tc.value, tc.raw)
			if got != tc.expected {
				t.Errorf("Value %q raw %q: expected %q, got %q", tc.value, tc.raw, tc.expected, got)
			}
		})
	}
}

func TestFormatSymbol(t *testing.T) {
	testCases := []struct {
		value    string
		expected string
	}{
		{":smile:", ":smile:"},
		{":+1:", ":+1:"},
		{"smile", ":smile:"},
		{":thumbs-up", ":thumbs-up:"},
	}
	for _, tc := range testCases {
		if got := FormatSymbol(":", tc.value); got != tc.expected {
			t.Errorf("Value %q: expected %q, got %q", tc.value, tc.expected, got)
		}
	}
}

func TestHighlighterReuse(t *testing.T) {
	h := NewHighlighter("bo")
	assert.Equal(t, "<li><strong>Bo</strong>b</li>", h.Highlight("<li>Bob</li>"))
	assert.Equal(t, "<li>Al<strong>bo</strong></li>", h.Highlight("<li>Albo</li>"))
	assert.Equal(t, "<li>Eve</li>", h.Highlight("<li>Eve</li>"))
	assert.Equal(t, "<li>Eve</li>", NewHighlighter("").Highlight("<li>Eve</li>"))
}

func TestSessionInsertUsesLastMatch(t *testing.T) {
	sess := NewSession(Options{}, nil)
	defer sess.Close()

	sess.Match("@", `hi @"Bob S`, true)
	assert.Equal(t, `"Bob Smith"`, sess.Insert("@", "@Bob Smith"))

	sess.Match("@", "hi @bo", true)
	assert.Equal(t, `@"Bob Smith"`, sess.Insert("@", "@Bob Smith"))
}

func TestHighlight(t *testing.T) {
	testCases := []struct {
		description string
		item        string
		query       string
		expected    string
	}{
		{"First occurrence only", "<li>Bob bobby</li>", "bob", "<li><strong>Bob</strong> bobby</li>"},
		{"Keeps surrounding text", "<li data-value=\"@x\"> Alice Bobson </li>", "bob", "<li data-value=\"@x\"> Alice <strong>Bob</strong>son </li>"},
		{"Nested markup", "<li><img src=\"a.png\"> smile</li>", "mil", "<li><img src=\"a.png\"> s<strong>mil</strong>e</li>"},
		{"No match", "<li>Carol</li>", "bob", "<li>Carol</li>"},
		{"Empty query", "<li>Carol</li>", "", "<li>Carol</li>"},
		{"Regex metachars", "<li>c++ fan</li>", "c++", "<li><strong>c++</strong> fan</li>"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, Highlight(tc.item, tc.query))
		})
	}
}
