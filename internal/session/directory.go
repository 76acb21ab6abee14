package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/store"
)

// Directory derives the set of known recipe names.
type Directory struct {
	rows     *kv.RowStore
	profiles store.Profiles
	log      *slog.Logger
}

// NewDirectory creates a directory over the row store and profile store.
func NewDirectory(rows *kv.RowStore, profiles store.Profiles, log *slog.Logger) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{rows: rows, profiles: profiles, log: log}
}

// ListAllRecipeNames returns the sorted union of recipes with full rows and
// recipes with profile records. recipe.DefaultRecipe is always included.
//
// A recipe may exist only as unsaved working rows or only as a saved profile
// whose rows were evicted, so neither store alone is complete. A failing
// profile store is logged and skipped; a failing row store is returned.
func (d *Directory) ListAllRecipeNames(ctx context.Context) ([]string, error) {
	set := map[string]struct{}{recipe.DefaultRecipe: {}}

	rowNames, err := d.rows.Names()
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	for _, n := range rowNames {
		set[n] = struct{}{}
	}

	profileNames, err := d.profiles.ListRecipeNames(ctx)
	if err != nil {
		d.log.Warn("profile store listing failed", "error", err)
	}
	for _, n := range profileNames {
		set[n] = struct{}{}
	}

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether name is a known recipe.
func (d *Directory) Exists(ctx context.Context, name string) (bool, error) {
	names, err := d.ListAllRecipeNames(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name, nil
}
