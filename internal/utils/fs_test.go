package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Section struct {
		Name  string `toml:"name"`
		Count int    `toml:"count"`
	} `toml:"section"`
}

func TestSaveAndLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")

	var in sample
	in.Section.Name = "bob"
	in.Section.Count = 3
	require.NoError(t, SaveTOMLFile(in, path))
	assert.True(t, FileExists(path))

	var out sample
	require.NoError(t, LoadTOMLFile(path, &out))
	assert.Equal(t, in, out)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestParseTOMLWithRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[mention]
min_chars = 3
rate = 2
label = "x"
[emoji.table]
smile = "smile.png"
bad = 4
`), 0644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)

	section, ok := ExtractSection(data, "mention")
	require.True(t, ok)
	n, ok := ExtractInt64(section, "min_chars")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	f, ok := ExtractFloat(section, "rate")
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)
	s, ok := ExtractString(section, "label")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = ExtractBool(section, "label")
	assert.False(t, ok)

	emoji, ok := ExtractSection(data, "emoji")
	require.True(t, ok)
	table, ok := ExtractStringMap(emoji, "table")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"smile": "smile.png"}, table)
}
