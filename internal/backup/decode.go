package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/costbook/internal/recipe"
)

// rawDocument mirrors Document with loosely typed leaves so that values the
// schema lets through are parsed with defaults instead of failing.
type rawDocument struct {
	App           string                     `json:"app"`
	SchemaVersion int                        `json:"schemaVersion"`
	ExportID      string                     `json:"exportId"`
	ExportedAt    string                     `json:"exportedAt"`
	CurrentRecipe string                     `json:"currentRecipe"`
	Settings      map[string]any             `json:"settings"`
	Folders       []any                      `json:"folders"`
	Recipes       map[string]json.RawMessage `json:"recipes"`
}

type rawRecipe struct {
	Rows json.RawMessage `json:"rows"`
	Meta map[string]any  `json:"meta"`
}

// Decode validates data against the document schema and parses it.
// Row fields, cache entries and metadata are coerced the same way stored
// values are; only the envelope is strict.
func Decode(data []byte) (*Document, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw rawDocument
	if err := dec.Decode(&raw); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}

	doc := &Document{
		App:           raw.App,
		SchemaVersion: raw.SchemaVersion,
		ExportID:      raw.ExportID,
		ExportedAt:    raw.ExportedAt,
		CurrentRecipe: raw.CurrentRecipe,
		Settings:      parseSettings(raw.Settings),
		Folders:       parseFolders(raw.Folders),
		Recipes:       make(map[string]Recipe, len(raw.Recipes)),
	}

	for name, body := range raw.Recipes {
		if strings.TrimSpace(name) == "" {
			continue
		}
		var r rawRecipe
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, &ValidationError{Problems: []string{fmt.Sprintf("recipes.%s: %v", name, err)}}
		}
		rows, ok := recipe.ParseRows(r.Rows)
		if !ok {
			rows = []recipe.Row{recipe.BlankRow()}
		}
		doc.Recipes[name] = Recipe{Rows: rows, Meta: parseMeta(r.Meta)}
	}
	return doc, nil
}

func parseSettings(m map[string]any) Settings {
	s := Settings{
		MarginPct:       recipe.DefaultMarginPct,
		IngredientCache: map[string]recipe.CacheEntry{},
	}
	if v, ok := m["marginPct"]; ok && v != nil {
		s.MarginPct = recipe.CoerceAmount(v)
	}
	cache, _ := m["ingredientCache"].(map[string]any)
	for name, v := range cache {
		fields, ok := v.(map[string]any)
		if !ok || recipe.IngredientKey(name) == "" {
			continue
		}
		s.IngredientCache[recipe.IngredientKey(name)] = recipe.CacheEntry{
			Cost:   recipe.CoerceAmount(fields["cost"]),
			Amount: recipe.CoerceAmount(fields["amount"]),
		}
	}
	return s
}

func parseFolders(raw []any) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, v := range raw {
		name, ok := v.(string)
		name = strings.TrimSpace(name)
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func parseMeta(m map[string]any) recipe.Meta {
	var meta recipe.Meta
	meta.Favorite, _ = m["favorite"].(bool)
	if folder, ok := m["folder"].(string); ok {
		meta.Folder = strings.TrimSpace(folder)
	}
	return meta
}
