package kv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/costbook/internal/recipe"
)

// Settings holds the process-wide singletons: the current recipe pointer
// and the margin percentage.
type Settings struct {
	engine        Engine
	log           *slog.Logger
	defaultMargin float64
}

// NewSettings creates settings on engine. defaultMargin is returned by
// MarginPct while no margin has been stored.
func NewSettings(engine Engine, log *slog.Logger, defaultMargin float64) *Settings {
	if log == nil {
		log = slog.Default()
	}
	return &Settings{engine: engine, log: log, defaultMargin: defaultMargin}
}

// CurrentRecipe returns the stored current recipe, or recipe.DefaultRecipe.
func (s *Settings) CurrentRecipe() string {
	var name string
	if !s.read(KeyCurrentRecipe, &name) || name == "" {
		return recipe.DefaultRecipe
	}
	return name
}

// SetCurrentRecipe persists the current recipe pointer.
func (s *Settings) SetCurrentRecipe(name string) error {
	return s.write(KeyCurrentRecipe, name)
}

// MarginPct returns the stored margin percentage, or the default.
func (s *Settings) MarginPct() float64 {
	var v any
	if !s.read(KeyMarginPct, &v) {
		return s.defaultMargin
	}
	pct := recipe.Coerce(v)
	if v == nil || pct < 0 {
		return s.defaultMargin
	}
	return pct
}

// SetMarginPct persists the margin percentage. Negative and non-finite
// values are rejected.
func (s *Settings) SetMarginPct(pct float64) error {
	if pct < 0 || math.IsNaN(pct) || math.IsInf(pct, 0) {
		return fmt.Errorf("margin must be a non-negative number, got %v", pct)
	}
	return s.write(KeyMarginPct, pct)
}

func (s *Settings) read(key string, dst any) bool {
	data, found, err := s.engine.Get(key)
	if err != nil {
		s.log.Warn("settings read failed", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.log.Debug("ignoring malformed setting", "key", key)
		return false
	}
	return true
}

func (s *Settings) write(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	if err := s.engine.Put(key, data); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
