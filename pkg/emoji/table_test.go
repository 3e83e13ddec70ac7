package emoji

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupByPrefix(t *testing.T) {
	table := NewTable(DefaultTable(), "/assets/emoji/", "")

	cands, err := table.Lookup(context.Background(), "smi", 10)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "smile", cands[0].Name)
	assert.Equal(t, "smiley", cands[1].Name)
	assert.Equal(t, "smile.png", cands[0].Extra["filename"])
}

func TestLookupRespectsLimit(t *testing.T) {
	table := NewTable(map[string]string{"aa": "1", "ab": "2", "ac": "3"}, "", "")

	cands, err := table.Lookup(context.Background(), "a", 2)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, []string{"aa", "ab"}, []string{cands[0].Name, cands[1].Name})
}

func TestLookupNoMatch(t *testing.T) {
	table := NewTable(DefaultTable(), "", "")
	cands, err := table.Lookup(context.Background(), "zzz", 5)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestRender(t *testing.T) {
	table := NewTable(DefaultTable(), "/assets/emoji/", "")
	assert.Equal(t,
		`<img class="emoji" src="/assets/emoji/smile.png" title=":smile:" alt=":smile:" height="20" />`,
		table.Render("smile"))
	assert.Equal(t, ":nope:", table.Render("nope"))
}

func TestResetSwapsContents(t *testing.T) {
	table := NewTable(DefaultTable(), "", "")
	table.Reset(map[string]string{"party": "party.gif", "": "skip.png"}, "/e", "[{name}|{filename}|{assetPath}]")

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, "[party|party.gif|/e]", table.Render("party"))
	assert.Equal(t, ":smile:", table.Render("smile"))
}
