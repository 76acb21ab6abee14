package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/costbook/internal/recipe"
)

// Meta returns the metadata of a recipe.
func (m *Manager) Meta(name string) recipe.Meta {
	return m.local.Meta.Get(name)
}

// AllMeta returns the metadata of every recipe that has any.
func (m *Manager) AllMeta() map[string]recipe.Meta {
	return m.local.Meta.All()
}

// SetFavorite flags or unflags a known recipe.
func (m *Manager) SetFavorite(ctx context.Context, name string, favorite bool) error {
	if err := m.requireRecipe(ctx, name); err != nil {
		return err
	}
	meta := m.local.Meta.Get(name)
	meta.Favorite = favorite
	return m.writeMeta(name, meta)
}

// SetFolder files a known recipe under folder. An empty folder unfiles it.
func (m *Manager) SetFolder(ctx context.Context, name, folder string) error {
	if err := m.requireRecipe(ctx, name); err != nil {
		return err
	}
	meta := m.local.Meta.Get(name)
	meta.Folder = strings.TrimSpace(folder)
	return m.writeMeta(name, meta)
}

// Folders returns the folder list in first-seen order.
func (m *Manager) Folders() []string {
	return m.local.Meta.Folders()
}

// AddFolder adds an empty folder.
func (m *Manager) AddFolder(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return m.local.Meta.MergeFolders([]string{name})
}

// RemoveFolder drops a folder; recipes filed in it become unfiled.
func (m *Manager) RemoveFolder(name string) error {
	return m.local.Meta.RemoveFolder(name)
}

func (m *Manager) writeMeta(name string, meta recipe.Meta) error {
	if meta.IsZero() {
		if err := m.local.Meta.Delete(name); err != nil {
			return fmt.Errorf("update metadata: %w", err)
		}
		return nil
	}
	if err := m.local.Meta.Set(name, meta); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

func (m *Manager) requireRecipe(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	ok, err := m.dir.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrRecipeNotFound)
	}
	return nil
}

// MergeMeta upserts metadata for several recipes and adds their folders to
// the folder list. A zero Meta removes the recipe's entry.
func (m *Manager) MergeMeta(entries map[string]recipe.Meta) error {
	set := make(map[string]recipe.Meta, len(entries))
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var folders []string
	for _, name := range names {
		meta := entries[name]
		if meta.IsZero() {
			if err := m.local.Meta.Delete(name); err != nil {
				return fmt.Errorf("merge metadata: %w", err)
			}
			continue
		}
		set[name] = meta
		if meta.Folder != "" {
			folders = append(folders, meta.Folder)
		}
	}
	if len(set) > 0 {
		if err := m.local.Meta.Merge(set); err != nil {
			return fmt.Errorf("merge metadata: %w", err)
		}
	}
	return m.MergeFolders(folders)
}

// MergeFolders unions names into the folder list.
func (m *Manager) MergeFolders(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if err := m.local.Meta.MergeFolders(names); err != nil {
		return fmt.Errorf("merge folders: %w", err)
	}
	return nil
}

// Ingredients returns the whole ingredient cache.
func (m *Manager) Ingredients() map[string]recipe.CacheEntry {
	return m.local.Ingredients.All()
}

// MergeIngredients upserts ingredient cache entries by name.
func (m *Manager) MergeIngredients(entries map[string]recipe.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := m.local.Ingredients.MergeEntries(entries); err != nil {
		return fmt.Errorf("merge ingredients: %w", err)
	}
	return nil
}
