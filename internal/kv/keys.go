package kv

// Keys of the local namespace.
const (
	KeyCurrentRecipe = "settings/currentRecipe"
	KeyMarginPct     = "settings/marginPct"
	KeyIngredients   = "ingredients"
	KeyMeta          = "meta"
	KeyFolders       = "folders"

	// RowsPrefix namespaces full-row entries; the suffix is the recipe name.
	RowsPrefix = "rows/"

	// KeyLegacyRows held the rows of the single recipe that existed before
	// named recipes. Only read by migration.
	KeyLegacyRows = "rows"
)

// RowsKey returns the row-store key for a recipe.
func RowsKey(recipeName string) string {
	return RowsPrefix + recipeName
}
