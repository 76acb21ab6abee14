package recipe

// DefaultRecipe is the fallback recipe used when no current recipe is set.
// Deleting it clears its contents but never removes the name.
const DefaultRecipe = "Default"

// DefaultMarginPct is the margin applied when none has been stored.
const DefaultMarginPct = 30.0

// Row is one ingredient line within a recipe.
//
// Cost buys Amount units of purchased stock; RecipeAmount is the quantity
// one batch of the recipe uses.
type Row struct {
	Name         string  `json:"name"`
	Cost         float64 `json:"cost"`
	Amount       float64 `json:"amount"`
	RecipeAmount float64 `json:"recipeAmount"`
}

// IsBlank reports whether the row carries no data at all.
func (r Row) IsBlank() bool {
	return r.Name == "" && r.Cost == 0 && r.Amount == 0 && r.RecipeAmount == 0
}

// HasPricing reports whether the row is worth remembering in the
// ingredient cache: a non-empty name and a positive cost or amount.
func (r Row) HasPricing() bool {
	return IngredientKey(r.Name) != "" && (r.Cost > 0 || r.Amount > 0)
}

// BlankRow returns the row a new or emptied recipe starts with.
func BlankRow() Row {
	return Row{}
}

// Normalize returns rows unchanged unless it is empty, in which case it
// returns a single blank row. A recipe is never held or persisted empty.
func Normalize(rows []Row) []Row {
	if len(rows) == 0 {
		return []Row{BlankRow()}
	}
	return rows
}

// Clone returns a copy of rows that shares no backing array.
func Clone(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// ProfileRecord is the reduced, store-persisted projection of one row.
// Key is unique per (RecipeName, IngredientName).
type ProfileRecord struct {
	Key            string  `json:"key"`
	RecipeName     string  `json:"recipeName"`
	IngredientName string  `json:"ingredientName"`
	RecipeAmount   float64 `json:"recipeAmount"`
}

// CacheEntry is the last-known pricing for an ingredient name.
type CacheEntry struct {
	Cost   float64 `json:"cost"`
	Amount float64 `json:"amount"`
}

// Meta is optional per-recipe metadata, independent of row contents.
type Meta struct {
	Favorite bool   `json:"favorite"`
	Folder   string `json:"folder"`
}

// IsZero reports whether the metadata carries no information.
func (m Meta) IsZero() bool {
	return !m.Favorite && m.Folder == ""
}
