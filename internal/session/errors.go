package session

import "errors"

// Sentinel errors returned by Manager operations.
var (
	ErrEmptyName      = errors.New("recipe name must not be empty")
	ErrRowIndex       = errors.New("row index out of range")
	ErrUnknownField   = errors.New("unknown row field")
	ErrRecipeExists   = errors.New("recipe already exists")
	ErrRecipeNotFound = errors.New("recipe not found")
)
