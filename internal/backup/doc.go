// Package backup serializes the whole local state to a portable JSON
// document and restores it.
//
// A document carries every recipe known to the directory (rows resolved the
// same way the lifecycle manager resolves them), recipe metadata, the folder
// list, the margin and the ingredient cache. Documents are checked against an
// embedded CUE schema before anything is written, so a rejected import leaves
// every store untouched.
//
// # Import Modes
//
//   - ModeMerge: each incoming recipe replaces the same-named local recipe's
//     rows; local recipes absent from the document are kept.
//   - ModeOverwrite: as merge, then local recipes absent from the document
//     are deleted.
package backup
