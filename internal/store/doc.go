// Package store provides the SQLite-backed profile store for costbook.
//
// The profile store keeps the reduced projection of every saved recipe:
// one record per (recipe, ingredient) with the amount one batch uses. Full
// rows live in the kv row store; this store is the structured, queryable
// copy used to rebuild recipes whose full rows are gone.
//
// # Replace Semantics
//
// PutItems replaces every record of a recipe. It runs in two phases:
//
//   - plan: every read (existing keys) and the projection happen first,
//     outside any transaction
//   - apply: one transaction deletes and inserts with no reads and no
//     waiting in between, then commits
//
// Either the whole replace commits or none of it does. A failure inside
// the transaction is returned as *TxError.
//
// # Degraded Mode
//
// OpenProfiles never fails: when the database cannot be opened it logs a
// warning and returns Disabled, which stores nothing and reads as empty.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
