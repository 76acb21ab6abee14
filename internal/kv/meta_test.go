package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/recipe"
)

func TestMetaStore_SetGetDelete(t *testing.T) {
	s := NewMetaStore(createTestEngine(t), discardLogger())

	require.NoError(t, s.Set("Cake", recipe.Meta{Favorite: true, Folder: "Desserts"}))
	assert.Equal(t, recipe.Meta{Favorite: true, Folder: "Desserts"}, s.Get("Cake"))
	assert.Equal(t, []string{"Desserts"}, s.Folders())

	require.NoError(t, s.Delete("Cake"))
	assert.True(t, s.Get("Cake").IsZero())
	assert.Empty(t, s.All())
	require.NoError(t, s.Delete("Cake"))
}

func TestMetaStore_FoldersDistinct(t *testing.T) {
	s := NewMetaStore(NewMemoryEngine(), discardLogger())

	require.NoError(t, s.MergeFolders([]string{"Bread", " Cakes ", ""}))
	require.NoError(t, s.MergeFolders([]string{"Cakes", "Soups"}))
	assert.Equal(t, []string{"Bread", "Cakes", "Soups"}, s.Folders())
}

func TestMetaStore_RemoveFolderClearsMembers(t *testing.T) {
	s := NewMetaStore(NewMemoryEngine(), discardLogger())
	require.NoError(t, s.Set("Cake", recipe.Meta{Folder: "Sweet", Favorite: true}))
	require.NoError(t, s.Set("Pie", recipe.Meta{Folder: "Sweet"}))
	require.NoError(t, s.Set("Soup", recipe.Meta{Folder: "Savory"}))

	require.NoError(t, s.RemoveFolder("Sweet"))

	assert.Equal(t, []string{"Savory"}, s.Folders())
	assert.Equal(t, recipe.Meta{Favorite: true}, s.Get("Cake"))
	assert.Equal(t, "", s.Get("Pie").Folder)
	assert.Equal(t, "Savory", s.Get("Soup").Folder)
}

func TestMetaStore_Malformed(t *testing.T) {
	e := NewMemoryEngine()
	s := NewMetaStore(e, discardLogger())

	require.NoError(t, e.Put(KeyMeta, []byte(`[1]`)))
	require.NoError(t, e.Put(KeyFolders, []byte(`{"a":1}`)))
	assert.Empty(t, s.All())
	assert.Empty(t, s.Folders())

	require.NoError(t, e.Put(KeyMeta, []byte(`{"Cake":{"favorite":"yes","folder":7}}`)))
	assert.Equal(t, recipe.Meta{}, s.Get("Cake"))

	require.NoError(t, e.Put(KeyFolders, []byte(`["A", 3, "B", "A"]`)))
	assert.Equal(t, []string{"A", "B"}, s.Folders())
}
