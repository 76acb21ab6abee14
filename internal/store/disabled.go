package store

import (
	"context"

	"github.com/roach88/costbook/internal/recipe"
)

// Compile-time interface check.
var _ Profiles = Disabled{}

// Disabled is the profile store used when SQLite is unavailable. Writes are
// dropped and reads are empty.
type Disabled struct{}

func (Disabled) ListRecipeNames(context.Context) ([]string, error) {
	return []string{}, nil
}

func (Disabled) GetItems(context.Context, string) ([]recipe.ProfileRecord, error) {
	return []recipe.ProfileRecord{}, nil
}

func (Disabled) PutItems(context.Context, string, []recipe.Row) error { return nil }

func (Disabled) DeleteRecipe(context.Context, string) error { return nil }

func (Disabled) Enabled() bool { return false }

func (Disabled) Close() error { return nil }
