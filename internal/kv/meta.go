package kv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/costbook/internal/recipe"
)

// MetaStore holds per-recipe metadata and the folder list.
type MetaStore struct {
	engine Engine
	log    *slog.Logger
	mu     sync.Mutex
}

// NewMetaStore creates a metadata store on engine.
func NewMetaStore(engine Engine, log *slog.Logger) *MetaStore {
	if log == nil {
		log = slog.Default()
	}
	return &MetaStore{engine: engine, log: log}
}

// All returns a copy of every metadata entry. Malformed content reads as empty.
func (s *MetaStore) All() map[string]recipe.Meta {
	out := map[string]recipe.Meta{}
	data, found, err := s.engine.Get(KeyMeta)
	if err != nil {
		s.log.Warn("metadata read failed", "error", err)
		return out
	}
	if !found {
		return out
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		s.log.Debug("resetting malformed metadata")
		return out
	}
	for name, fields := range raw {
		var m recipe.Meta
		if fav, ok := fields["favorite"].(bool); ok {
			m.Favorite = fav
		}
		if folder, ok := fields["folder"].(string); ok {
			m.Folder = folder
		}
		out[name] = m
	}
	return out
}

// Get returns the metadata for a recipe; the zero Meta if none is stored.
func (s *MetaStore) Get(recipeName string) recipe.Meta {
	return s.All()[recipeName]
}

// Set upserts the metadata for a recipe. A non-empty folder is added to the
// folder list.
func (s *MetaStore) Set(recipeName string, m recipe.Meta) error {
	if err := s.Merge(map[string]recipe.Meta{recipeName: m}); err != nil {
		return err
	}
	if m.Folder != "" {
		return s.MergeFolders([]string{m.Folder})
	}
	return nil
}

// Merge upserts several metadata entries at once.
func (s *MetaStore) Merge(entries map[string]recipe.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.All()
	for name, m := range entries {
		next[name] = m
	}
	return s.writeMeta(next)
}

// Delete removes the metadata entry for a recipe.
func (s *MetaStore) Delete(recipeName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.All()
	if _, ok := next[recipeName]; !ok {
		return nil
	}
	delete(next, recipeName)
	return s.writeMeta(next)
}

// Folders returns the folder list. Malformed content reads as empty.
func (s *MetaStore) Folders() []string {
	data, found, err := s.engine.Get(KeyFolders)
	if err != nil {
		s.log.Warn("folder list read failed", "error", err)
		return []string{}
	}
	if !found {
		return []string{}
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Debug("resetting malformed folder list")
		return []string{}
	}
	folders := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			folders = append(folders, name)
		}
	}
	return dedupeFolders(folders)
}

// MergeFolders unions names into the folder list.
func (s *MetaStore) MergeFolders(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFolders(append(s.Folders(), names...))
}

// RemoveFolder drops a folder and clears it from every recipe filed in it.
func (s *MetaStore) RemoveFolder(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []string
	for _, f := range s.Folders() {
		if f != name {
			kept = append(kept, f)
		}
	}
	if err := s.writeFolders(kept); err != nil {
		return err
	}

	meta := s.All()
	changed := false
	for recipeName, m := range meta {
		if m.Folder == name {
			m.Folder = ""
			meta[recipeName] = m
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeMeta(meta)
}

func (s *MetaStore) writeMeta(meta map[string]recipe.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := s.engine.Put(KeyMeta, data); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func (s *MetaStore) writeFolders(folders []string) error {
	data, err := json.Marshal(dedupeFolders(folders))
	if err != nil {
		return fmt.Errorf("save folders: %w", err)
	}
	if err := s.engine.Put(KeyFolders, data); err != nil {
		return fmt.Errorf("save folders: %w", err)
	}
	return nil
}

// dedupeFolders trims names and drops empties and duplicates, keeping
// first-seen order.
func dedupeFolders(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
