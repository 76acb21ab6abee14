package kv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/costbook/internal/recipe"
)

// RowStore persists full-fidelity rows per recipe.
type RowStore struct {
	engine Engine
	log    *slog.Logger
}

// NewRowStore creates a row store on engine.
func NewRowStore(engine Engine, log *slog.Logger) *RowStore {
	if log == nil {
		log = slog.Default()
	}
	return &RowStore{engine: engine, log: log}
}

// Load returns the stored rows for recipeName. The second result is false
// when nothing is stored or the stored value is not a well-formed row
// sequence; callers fall back to reconstruction in both cases.
func (s *RowStore) Load(recipeName string) ([]recipe.Row, bool) {
	return s.load(RowsKey(recipeName))
}

func (s *RowStore) load(key string) ([]recipe.Row, bool) {
	data, found, err := s.engine.Get(key)
	if err != nil {
		s.log.Warn("row store read failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	rows, ok := recipe.ParseRows(data)
	if !ok {
		s.log.Debug("ignoring malformed rows", "key", key)
		return nil, false
	}
	return rows, true
}

// Save overwrites the stored rows for recipeName. An empty row set is stored
// as a single blank row.
func (s *RowStore) Save(recipeName string, rows []recipe.Row) error {
	data, err := json.Marshal(recipe.Normalize(rows))
	if err != nil {
		return fmt.Errorf("save rows: %w", err)
	}
	if err := s.engine.Put(RowsKey(recipeName), data); err != nil {
		return fmt.Errorf("save rows: %w", err)
	}
	return nil
}

// Delete removes the stored rows for recipeName.
func (s *RowStore) Delete(recipeName string) error {
	if err := s.engine.Delete(RowsKey(recipeName)); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	return nil
}

// Names returns every recipe name that has a row entry, in byte order.
func (s *RowStore) Names() ([]string, error) {
	keys, err := s.engine.Keys(RowsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list row entries: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, RowsPrefix)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// LoadLegacy returns rows stored under the pre-multi-recipe key.
func (s *RowStore) LoadLegacy() ([]recipe.Row, bool) {
	return s.load(KeyLegacyRows)
}

// DeleteLegacy removes the pre-multi-recipe key.
func (s *RowStore) DeleteLegacy() error {
	if err := s.engine.Delete(KeyLegacyRows); err != nil {
		return fmt.Errorf("delete legacy rows: %w", err)
	}
	return nil
}
