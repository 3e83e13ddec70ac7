package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T, names ...string) *Directory {
	t.Helper()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, n := range names {
		_, err := store.Add(context.Background(), n)
		require.NoError(t, err)
	}
	dir, err := Load(context.Background(), store)
	require.NoError(t, err)
	return dir
}

func searchNames(users []User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Name
	}
	return out
}

func TestSearchIsCaseInsensitivePrefix(t *testing.T) {
	dir := newTestDirectory(t, "Bob", "bobby", "Alice", "BOBBINA", "Robert")

	assert.Equal(t, []string{"BOBBINA", "Bob", "bobby"}, searchNames(dir.Search("bob", 10)))
	assert.Equal(t, []string{"Alice"}, searchNames(dir.Search("AL", 10)))
	assert.Empty(t, dir.Search("zed", 10))
}

func TestSearchLimit(t *testing.T) {
	dir := newTestDirectory(t, "ann1", "ann2", "ann3", "ann4")
	assert.Len(t, dir.Search("ann", 3), 3)
	assert.Len(t, dir.Search("ann", 0), 4)
}

func TestDuplicateNamesKeepBothUsers(t *testing.T) {
	dir := newTestDirectory(t, "Sam", "sam")
	got := dir.Search("sa", 10)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestAddAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(t, "Carol")

	u, err := dir.Add(ctx, "  Carla ")
	require.NoError(t, err)
	assert.Equal(t, "Carla", u.Name)
	assert.Equal(t, 2, dir.Len())
	assert.Equal(t, []string{"Carla", "Carol"}, searchNames(dir.Search("car", 10)))

	removed, err := dir.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carla", removed.Name)
	assert.Equal(t, []string{"Carol"}, searchNames(dir.Search("car", 10)))
	_, err = dir.Delete(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = dir.Add(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestDeletedUsersAreNotLoaded(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	a, err := store.Add(ctx, "Dora")
	require.NoError(t, err)
	_, err = store.Add(ctx, "Dorian")
	require.NoError(t, err)
	_, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)

	dir, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dorian"}, searchNames(dir.Search("dor", 10)))
}
