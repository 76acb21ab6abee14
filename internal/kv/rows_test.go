package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/recipe"
)

func TestRowStore_RoundTrip(t *testing.T) {
	s := NewRowStore(createTestEngine(t), discardLogger())

	rows := []recipe.Row{
		{Name: "Flour", Cost: 1290, Amount: 1000, RecipeAmount: 300},
		{Name: "Egg", Cost: 3.5, Amount: 1, RecipeAmount: 2},
	}
	require.NoError(t, s.Save("Cake", rows))

	loaded, ok := s.Load("Cake")
	require.True(t, ok)
	assert.Equal(t, rows, loaded)
}

func TestRowStore_LoadMissing(t *testing.T) {
	s := NewRowStore(NewMemoryEngine(), discardLogger())

	rows, ok := s.Load("Nope")
	assert.False(t, ok)
	assert.Nil(t, rows)
}

func TestRowStore_LoadMalformed(t *testing.T) {
	e := NewMemoryEngine()
	s := NewRowStore(e, discardLogger())

	for _, raw := range []string{"not json", `{"name":"x"}`, `null`} {
		require.NoError(t, e.Put(RowsKey("Bad"), []byte(raw)))
		_, ok := s.Load("Bad")
		assert.False(t, ok, "value %q should read as absent", raw)
	}
}

func TestRowStore_LoadCoercesFields(t *testing.T) {
	e := NewMemoryEngine()
	s := NewRowStore(e, discardLogger())
	require.NoError(t, e.Put(RowsKey("Loose"), []byte(`[{"name":"Milk","cost":"250","amount":null}]`)))

	rows, ok := s.Load("Loose")
	require.True(t, ok)
	assert.Equal(t, []recipe.Row{{Name: "Milk", Cost: 250}}, rows)
}

func TestRowStore_SaveEmptyStoresBlankRow(t *testing.T) {
	s := NewRowStore(NewMemoryEngine(), discardLogger())
	require.NoError(t, s.Save("Empty", nil))

	rows, ok := s.Load("Empty")
	require.True(t, ok)
	assert.Equal(t, []recipe.Row{recipe.BlankRow()}, rows)
}

func TestRowStore_SaveOverwrites(t *testing.T) {
	s := NewRowStore(NewMemoryEngine(), discardLogger())
	require.NoError(t, s.Save("Cake", []recipe.Row{{Name: "A"}, {Name: "B"}}))
	require.NoError(t, s.Save("Cake", []recipe.Row{{Name: "C"}}))

	rows, ok := s.Load("Cake")
	require.True(t, ok)
	assert.Equal(t, []recipe.Row{{Name: "C"}}, rows)
}

func TestRowStore_NamesAndDelete(t *testing.T) {
	e := createTestEngine(t)
	s := NewRowStore(e, discardLogger())
	require.NoError(t, s.Save("Cake", nil))
	require.NoError(t, s.Save("Bread", nil))
	require.NoError(t, s.Save("Ünicode pie", nil))
	require.NoError(t, e.Put(KeyLegacyRows, []byte("[]")))

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bread", "Cake", "Ünicode pie"}, names)

	require.NoError(t, s.Delete("Cake"))
	names, err = s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bread", "Ünicode pie"}, names)
}

func TestRowStore_Legacy(t *testing.T) {
	e := NewMemoryEngine()
	s := NewRowStore(e, discardLogger())

	_, ok := s.LoadLegacy()
	assert.False(t, ok)

	require.NoError(t, e.Put(KeyLegacyRows, []byte(`[{"name":"Flour","cost":1,"amount":1,"recipeAmount":1}]`)))
	rows, ok := s.LoadLegacy()
	require.True(t, ok)
	assert.Equal(t, "Flour", rows[0].Name)

	require.NoError(t, s.DeleteLegacy())
	_, ok = s.LoadLegacy()
	assert.False(t, ok)
}
