// Package recipe defines the costbook data model: ingredient rows, the
// reduced profile projection, cache entries and recipe metadata.
//
// # Numeric Coercion
//
// Every numeric field that crosses a persistence or input boundary goes
// through Coerce. Malformed, non-finite or non-numeric input becomes 0;
// nothing in this package returns an error for bad numbers.
//
// # Derived Values
//
//   - UnitCost = Cost / Amount when Amount > 0, else 0
//   - LineCost = UnitCost * RecipeAmount
//   - TotalCost = sum of LineCost
//   - FinalPrice = round(total * (1 + margin/100))
//
// # Names
//
// Recipe names are case-sensitive display names. Ingredient names are the
// join key against the ingredient cache and the profile store; IngredientKey
// trims them and applies Unicode NFC so that equivalent spellings join.
package recipe
