package recipe

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// profileKeySeparator joins recipe and ingredient names in profile keys.
const profileKeySeparator = "::"

// IngredientKey returns the join key for an ingredient name: trimmed and
// NFC normalized. An empty result means the row has no usable name.
func IngredientKey(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ProfileKey returns the unique key of a profile record.
func ProfileKey(recipeName, ingredientName string) string {
	return recipeName + profileKeySeparator + ingredientName
}

// Projection reduces rows to profile records for recipeName.
//
// Rows whose trimmed name is empty are skipped. Rows sharing an ingredient
// name collapse into one record holding the last row's RecipeAmount, kept at
// the position the name was first seen.
func Projection(recipeName string, rows []Row) []ProfileRecord {
	index := make(map[string]int, len(rows))
	records := make([]ProfileRecord, 0, len(rows))
	for _, r := range rows {
		ingredient := IngredientKey(r.Name)
		if ingredient == "" {
			continue
		}
		rec := ProfileRecord{
			Key:            ProfileKey(recipeName, ingredient),
			RecipeName:     recipeName,
			IngredientName: ingredient,
			RecipeAmount:   r.RecipeAmount,
		}
		if i, ok := index[ingredient]; ok {
			records[i] = rec
			continue
		}
		index[ingredient] = len(records)
		records = append(records, rec)
	}
	return records
}
