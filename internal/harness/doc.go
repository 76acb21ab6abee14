// Package harness runs recipe-session scenarios written in YAML.
//
// A scenario seeds the key/value and profile stores, drives a session through
// a flow of operations and asserts on the trace and the persisted state. The
// session is the real session.Manager and backup.Codec; nothing is mocked
// except time.
//
// # Scenario Format
//
//	name: cake_pricing
//	description: "Pricing one ingredient and saving it"
//	setup:
//	  - action: seed_ingredients
//	    args: { rows: [{ name: Flour, cost: 1290, amount: 1000 }] }
//	flow:
//	  - invoke: boot
//	  - invoke: edit
//	    args: { row: 0, field: name, value: Flour }
//	    expect:
//	      case: ok
//	      result: { finalPrice: 0 }
//	  - invoke: advance
//	    args: { by: 400ms }
//	assertions:
//	  - type: rows
//	    recipe: Default
//	    expect: [{ name: Flour }]
//	  - type: writes
//	    prefix: rows/
//	    count: 2
//
// # Setup Actions
//
// seed_rows, seed_legacy_rows, seed_profile, seed_ingredients, seed_current,
// seed_margin and seed_raw write straight to the stores. Writes made during
// setup are not counted by writes assertions.
//
// # Operations
//
// boot, restart, migrate, create, switch, delete, rename, edit, add_row,
// delete_row, save, advance, flush, margin, totals, favorite, folder, list,
// export and import. A failing operation completes with the case of its
// sentinel error (empty_name, not_found, exists, row_index, unknown_field,
// invalid) or "error".
//
// # Assertion Types
//
//   - trace_contains, trace_order, trace_count: invocations in the trace
//   - rows: the Row Store entry of a recipe
//   - profile: the Profile Store records of a recipe
//   - cache: one Ingredient Cache entry
//   - meta: recipe metadata
//   - current: the persisted current recipe pointer
//   - recipes: the recipe listing
//   - writes: key/value writes and deletes under a key prefix
//
// # Deterministic Testing
//
// Debounced saves run on a testutil.ManualScheduler and only fire on
// "advance" steps. Exports use a fixed clock and export id. Each scenario gets
// an in-memory key/value engine and an in-memory SQLite database.
//
// The same scenarios run from the command line with "costbook test <dir>",
// which also checks <dir>/golden/<name>.golden when present.
package harness
