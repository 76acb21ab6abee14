package backup

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/recipe"
)

func exportBytes(t *testing.T, env *testEnv) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := env.codec.ExportTo(context.Background(), &buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExport_Golden(t *testing.T) {
	env := createTestEnv(t)
	seedCake(t, env.m)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export_cake", exportBytes(t, env))
}

func TestExport_IncludesProfileOnlyRecipes(t *testing.T) {
	env := createTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.profiles.PutItems(ctx, "Bread", []recipe.Row{{Name: "Flour", RecipeAmount: 500}}))
	require.NoError(t, env.m.MergeIngredients(map[string]recipe.CacheEntry{"Flour": {Cost: 1290, Amount: 1000}}))

	doc, err := env.codec.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bread", "Default"}, doc.Names())
	assert.Equal(t, []recipe.Row{{Name: "Flour", Cost: 1290, Amount: 1000, RecipeAmount: 500}}, doc.Recipes["Bread"].Rows)
	assert.Equal(t, App, doc.App)
	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "export-1", doc.ExportID)
	assert.Equal(t, "2026-01-02T03:04:05Z", doc.ExportedAt)
}

func TestExport_FlushesPendingEdits(t *testing.T) {
	env := createTestEnv(t)
	ctx := context.Background()

	_, err := env.m.CreateRecipe(ctx, "Cake")
	require.NoError(t, err)
	_, err = env.m.RecordEdit(0, "name", "Eggs")
	require.NoError(t, err)

	doc, err := env.codec.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Eggs", doc.Recipes["Cake"].Rows[0].Name)
}

func TestRoundTrip_MergeLeavesStateUnchanged(t *testing.T) {
	env := createTestEnv(t)
	ctx := context.Background()

	seedCake(t, env.m)
	require.NoError(t, env.profiles.PutItems(ctx, "Bread", []recipe.Row{{Name: "Yeast", RecipeAmount: 7}}))
	require.NoError(t, env.m.SetMargin(45))

	namesBefore, err := env.m.ListAllRecipeNames(ctx)
	require.NoError(t, err)
	rowsBefore := map[string][]recipe.Row{}
	for _, n := range namesBefore {
		rowsBefore[n] = env.m.EnsureRows(ctx, n)
	}
	cacheBefore := env.m.Ingredients()
	foldersBefore := env.m.Folders()

	data := exportBytes(t, env)
	res, err := env.codec.Import(ctx, data, ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, namesBefore, res.Imported)
	assert.Empty(t, res.Pruned)

	namesAfter, err := env.m.ListAllRecipeNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, namesBefore, namesAfter)
	for _, n := range namesAfter {
		assert.Equal(t, rowsBefore[n], env.m.EnsureRows(ctx, n), "rows of %s", n)
	}
	assert.Equal(t, 45.0, env.m.MarginPct())
	assert.Equal(t, cacheBefore, env.m.Ingredients())
	assert.Equal(t, foldersBefore, env.m.Folders())
	assert.Equal(t, recipe.Meta{Favorite: true, Folder: "Desserts"}, env.m.Meta("Cake"))
	assert.Equal(t, "Cake", env.m.Current())
}

func TestImport_RejectsInvalidDocumentsWithoutMutation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"app mismatch", `{"app":"other","schemaVersion":1,"recipes":{}}`},
		{"missing app", `{"schemaVersion":1,"recipes":{}}`},
		{"unknown version", `{"app":"costbook","schemaVersion":2,"recipes":{}}`},
		{"version as string", `{"app":"costbook","schemaVersion":"1","recipes":{}}`},
		{"recipes not a mapping", `{"app":"costbook","schemaVersion":1,"recipes":[]}`},
		{"missing recipes", `{"app":"costbook","schemaVersion":1}`},
		{"malformed json", `{"app":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := createTestEnv(t)
			seedCake(t, env.m)

			before, err := env.local.Engine.Snapshot()
			require.NoError(t, err)

			_, err = env.codec.Import(context.Background(), []byte(tt.doc), ModeOverwrite)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "got %v", err)

			after, err := env.local.Engine.Snapshot()
			require.NoError(t, err)
			assert.Equal(t, before, after)

			items, err := env.profiles.GetItems(context.Background(), "Cake")
			require.NoError(t, err)
			assert.Len(t, items, 1)
		})
	}
}

func TestImport_MergeKeepsLocalOnlyRecipes(t *testing.T) {
	src := createTestEnv(t)
	seedCake(t, src.m)
	data := exportBytes(t, src)

	dst := createTestEnv(t)
	ctx := context.Background()
	_, err := dst.m.CreateRecipe(ctx, "Pie")
	require.NoError(t, err)

	res, err := dst.codec.Import(ctx, data, ModeMerge)
	require.NoError(t, err)
	assert.Empty(t, res.Pruned)

	names, err := dst.m.ListAllRecipeNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cake", "Default", "Pie"}, names)
	assert.Equal(t, "Cake", dst.m.Current(), "switches to the document's current recipe")

	items, err := dst.profiles.GetItems(ctx, "Cake")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 300.0, items[0].RecipeAmount)
}

func TestImport_OverwritePrunesLocalOnlyRecipes(t *testing.T) {
	src := createTestEnv(t)
	seedCake(t, src.m)
	data := exportBytes(t, src)

	dst := createTestEnv(t)
	ctx := context.Background()
	_, err := dst.m.CreateRecipe(ctx, "Pie")
	require.NoError(t, err)
	require.NoError(t, dst.m.SetFavorite(ctx, "Pie", true))

	res, err := dst.codec.Import(ctx, data, ModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pie"}, res.Pruned)

	names, err := dst.m.ListAllRecipeNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cake", "Default"}, names)
	assert.True(t, dst.m.Meta("Pie").IsZero())
	assert.Equal(t, "Cake", res.Current)
}

func TestImport_UnknownCurrentKeepsPrior(t *testing.T) {
	env := createTestEnv(t)
	ctx := context.Background()
	_, err := env.m.CreateRecipe(ctx, "Pie")
	require.NoError(t, err)

	doc := `{"app":"costbook","schemaVersion":1,"currentRecipe":"Gone",
		"recipes":{"Cake":{"rows":[{"name":"Flour","cost":"12,5","amount":-1}]}}}`
	res, err := env.codec.Import(ctx, []byte(doc), ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, "Pie", res.Current)

	rows := env.m.EnsureRows(ctx, "Cake")
	assert.Equal(t, []recipe.Row{{Name: "Flour", Cost: 12.5}}, rows, "rows are coerced on the way in")
	assert.Equal(t, recipe.DefaultMarginPct, env.m.MarginPct())
}

func TestImport_InvalidMode(t *testing.T) {
	env := createTestEnv(t)

	_, err := env.codec.Import(context.Background(), []byte(`{}`), Mode("replace"))
	assert.Error(t, err)
}

func TestImportFile(t *testing.T) {
	env := createTestEnv(t)
	ctx := context.Background()

	_, err := env.codec.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"), ModeMerge)
	assert.ErrorIs(t, err, ErrFileRead)

	res, err := env.codec.ImportFile(ctx, filepath.Join("testdata", "golden", "export_cake.golden"), ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cake", "Default"}, res.Imported)
	assert.Equal(t, recipe.Meta{Favorite: true, Folder: "Desserts"}, env.m.Meta("Cake"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("overwrite")
	require.NoError(t, err)
	assert.Equal(t, ModeOverwrite, m)

	_, err = ParseMode("")
	assert.Error(t, err)
}
