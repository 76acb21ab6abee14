package kv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/costbook/internal/recipe"
)

// IngredientCache maps ingredient names to their last-known pricing. It is
// shared by every recipe.
//
// Writers load the whole mapping, mutate a copy and save it back; mu keeps
// two read-modify-write cycles from interleaving.
type IngredientCache struct {
	engine Engine
	log    *slog.Logger
	mu     sync.Mutex
}

// NewIngredientCache creates a cache on engine.
func NewIngredientCache(engine Engine, log *slog.Logger) *IngredientCache {
	if log == nil {
		log = slog.Default()
	}
	return &IngredientCache{engine: engine, log: log}
}

// Get returns the cached pricing for name.
func (c *IngredientCache) Get(name string) (recipe.CacheEntry, bool) {
	key := recipe.IngredientKey(name)
	if key == "" {
		return recipe.CacheEntry{}, false
	}
	entry, ok := c.All()[key]
	return entry, ok
}

// All returns a copy of the whole mapping. Malformed content reads as empty.
func (c *IngredientCache) All() map[string]recipe.CacheEntry {
	data, found, err := c.engine.Get(KeyIngredients)
	if err != nil {
		c.log.Warn("ingredient cache read failed", "error", err)
		return map[string]recipe.CacheEntry{}
	}
	if !found {
		return map[string]recipe.CacheEntry{}
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		c.log.Debug("resetting malformed ingredient cache")
		return map[string]recipe.CacheEntry{}
	}
	out := make(map[string]recipe.CacheEntry, len(raw))
	for name, fields := range raw {
		out[name] = recipe.CacheEntry{
			Cost:   recipe.CoerceAmount(fields["cost"]),
			Amount: recipe.CoerceAmount(fields["amount"]),
		}
	}
	return out
}

// MergeFromRows upserts one entry per row with a non-empty name and a
// positive cost or amount. Other rows are ignored, so clearing a row never
// erases pricing remembered for the same name elsewhere.
func (c *IngredientCache) MergeFromRows(rows []recipe.Row) error {
	updates := make(map[string]recipe.CacheEntry)
	for _, r := range rows {
		if !r.HasPricing() {
			continue
		}
		updates[recipe.IngredientKey(r.Name)] = recipe.CacheEntry{Cost: r.Cost, Amount: r.Amount}
	}
	if len(updates) == 0 {
		return nil
	}
	return c.MergeEntries(updates)
}

// MergeEntries upserts entries by name.
func (c *IngredientCache) MergeEntries(entries map[string]recipe.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.All()
	for name, entry := range entries {
		key := recipe.IngredientKey(name)
		if key == "" {
			continue
		}
		next[key] = entry
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("save ingredient cache: %w", err)
	}
	if err := c.engine.Put(KeyIngredients, data); err != nil {
		return fmt.Errorf("save ingredient cache: %w", err)
	}
	return nil
}
