// Package session implements the recipe directory and the recipe lifecycle
// manager.
//
// A Manager owns the current recipe name and the in-memory working rows,
// and reconciles the three local stores:
//
//   - the kv row store: full rows per recipe, written on every change
//     (debounced for field edits, immediate for structural changes)
//   - the profile store: reduced {ingredient, recipeAmount} projection,
//     written on explicit Save
//   - the ingredient cache: last-known {cost, amount} per ingredient name,
//     used to enrich rows rebuilt from the profile store
//
// # Resolution Order
//
// EnsureRows returns, in order of preference: the row store's rows; rows
// rebuilt from profile records plus cached pricing; a single blank row. It
// never fails.
//
// # Concurrency
//
// Every Manager method is serialized by one mutex, so two overlapping
// switches cannot interleave: the later call's rows win. The debounced save
// takes the same mutex and reads the current name and rows when it fires,
// never values captured at scheduling time.
package session
