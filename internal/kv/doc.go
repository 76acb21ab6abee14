// Package kv provides the fast local key/value persistence for costbook.
//
// A single bbolt bucket holds every key of the local namespace:
//
//	settings/currentRecipe   JSON string
//	settings/marginPct       JSON number
//	rows/<recipe>            JSON array of rows (full fidelity)
//	ingredients              JSON object: ingredient -> {cost, amount}
//	meta                     JSON object: recipe -> {favorite, folder}
//	folders                  JSON array of folder names
//	rows                     legacy single-recipe rows (migration source only)
//
// The typed stores on top of the engine (RowStore, IngredientCache, Settings,
// MetaStore) parse with defaults at the read boundary: a malformed value is
// logged and treated as missing, never returned as an error.
package kv
