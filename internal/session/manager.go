package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/costbook/internal/debounce"
	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/store"
)

// DefaultDebounce is the quiet period after the last field edit before the
// working rows are written.
const DefaultDebounce = 400 * time.Millisecond

// Source tells where resolved rows came from.
type Source string

const (
	SourceRows    Source = "rows"
	SourceProfile Source = "profile"
	SourceBlank   Source = "blank"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDebounce sets the quiet period for field edits.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) {
		m.delay = d
	}
}

// WithScheduler replaces the wall-clock scheduler used for debounced saves.
func WithScheduler(s debounce.Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// Manager is the recipe lifecycle manager. See the package documentation.
type Manager struct {
	local     *kv.Local
	profiles  store.Profiles
	dir       *Directory
	log       *slog.Logger
	delay     time.Duration
	scheduler debounce.Scheduler
	saver     *debounce.Debouncer

	mu      sync.Mutex
	current string
	rows    []recipe.Row
	dirty   bool // working rows differ from the row store
}

// New creates a Manager over the local stores and the profile store. The
// manager starts on recipe.DefaultRecipe with one blank row; call Boot to
// restore the persisted state.
func New(local *kv.Local, profiles store.Profiles, opts ...Option) *Manager {
	m := &Manager{
		local:    local,
		profiles: profiles,
		delay:    DefaultDebounce,
		current:  recipe.DefaultRecipe,
		rows:     []recipe.Row{recipe.BlankRow()},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.profiles == nil {
		m.profiles = store.Disabled{}
	}
	m.saver = debounce.New(m.delay, m.scheduler)
	m.dir = NewDirectory(local.Rows, m.profiles, m.log)
	return m
}

// Directory returns the recipe directory.
func (m *Manager) Directory() *Directory {
	return m.dir
}

// ListAllRecipeNames is a shortcut for Directory().ListAllRecipeNames.
func (m *Manager) ListAllRecipeNames(ctx context.Context) ([]string, error) {
	return m.dir.ListAllRecipeNames(ctx)
}

// Current returns the current recipe name.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Rows returns a copy of the working rows.
func (m *Manager) Rows() []recipe.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return recipe.Clone(m.rows)
}

// Boot restores persisted state: it migrates legacy data, then switches to
// the stored current recipe without rewriting the pointer.
func (m *Manager) Boot(ctx context.Context) ([]recipe.Row, error) {
	if _, err := m.Migrate(ctx); err != nil {
		return nil, err
	}
	return m.SwitchRecipe(ctx, m.local.Settings.CurrentRecipe(), false)
}

// Migrate moves rows stored under the legacy single-recipe key into the
// Default recipe, unless Default already has rows. The legacy key is removed
// either way. It reports whether anything was moved.
func (m *Manager) Migrate(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	legacy, ok := m.local.Rows.LoadLegacy()
	if !ok {
		return false, nil
	}

	moved := false
	if _, exists := m.local.Rows.Load(recipe.DefaultRecipe); !exists {
		if err := m.local.Rows.Save(recipe.DefaultRecipe, legacy); err != nil {
			return false, fmt.Errorf("migrate legacy rows: %w", err)
		}
		moved = true
		m.log.Info("migrated legacy rows", "recipe", recipe.DefaultRecipe, "rows", len(legacy))
	}

	if err := m.local.Rows.DeleteLegacy(); err != nil {
		return moved, fmt.Errorf("migrate legacy rows: %w", err)
	}
	return moved, nil
}

// EnsureRows resolves the rows of a recipe without touching the working
// state. It never fails; see the package documentation for the order.
func (m *Manager) EnsureRows(ctx context.Context, name string) []recipe.Row {
	rows, _ := m.Resolve(ctx, name)
	return rows
}

// Resolve is EnsureRows that also reports where the rows came from.
func (m *Manager) Resolve(ctx context.Context, name string) ([]recipe.Row, Source) {
	if rows, ok := m.local.Rows.Load(name); ok {
		return rows, SourceRows
	}

	records, err := m.profiles.GetItems(ctx, name)
	if err != nil {
		m.log.Warn("profile lookup failed, using blank recipe", "recipe", name, "error", err)
		return []recipe.Row{recipe.BlankRow()}, SourceBlank
	}
	if len(records) > 0 {
		rows := make([]recipe.Row, 0, len(records))
		for _, rec := range records {
			row := recipe.Row{Name: rec.IngredientName, RecipeAmount: rec.RecipeAmount}
			if entry, ok := m.local.Ingredients.Get(rec.IngredientName); ok {
				row.Cost = entry.Cost
				row.Amount = entry.Amount
			}
			rows = append(rows, row)
		}
		return rows, SourceProfile
	}

	return []recipe.Row{recipe.BlankRow()}, SourceBlank
}

// SwitchRecipe makes name the current recipe and returns its rows.
//
// A pending debounced save is written under the previous recipe first. The
// resolved rows are written back to the row store, so switching into a
// profile-only recipe materializes its full rows locally. When
// persistAsCurrent is set the settings pointer is updated.
func (m *Manager) SwitchRecipe(ctx context.Context, name string, persistAsCurrent bool) ([]recipe.Row, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flushLocked(); err != nil {
		return nil, err
	}
	return m.switchLocked(ctx, name, persistAsCurrent)
}

func (m *Manager) switchLocked(ctx context.Context, name string, persistAsCurrent bool) ([]recipe.Row, error) {
	m.current = name
	if persistAsCurrent {
		if err := m.local.Settings.SetCurrentRecipe(name); err != nil {
			return nil, fmt.Errorf("switch recipe: %w", err)
		}
	}

	rows, source := m.Resolve(ctx, name)
	m.rows = recipe.Clone(rows)
	m.dirty = false
	if err := m.local.Rows.Save(m.current, m.rows); err != nil {
		return nil, fmt.Errorf("switch recipe: %w", err)
	}

	m.log.Debug("switched recipe", "recipe", name, "source", source, "rows", len(rows))
	return recipe.Clone(m.rows), nil
}

// CreateRecipe starts a new recipe with a single blank row and makes it
// current.
//
// Create is destructive: any row store entry, profile records or metadata
// already stored under name are cleared first.
func (m *Manager) CreateRecipe(ctx context.Context, name string) ([]recipe.Row, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flushLocked(); err != nil {
		return nil, err
	}
	if err := m.purgeLocked(ctx, name); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	m.current = name
	m.rows = []recipe.Row{recipe.BlankRow()}
	m.dirty = false
	if err := m.local.Settings.SetCurrentRecipe(name); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	if err := m.local.Rows.Save(name, m.rows); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	m.log.Info("created recipe", "recipe", name)
	return recipe.Clone(m.rows), nil
}

// DeleteRecipe removes a recipe from every store.
//
// Deleting the current recipe drops its pending save and switches to the
// first remaining name in the directory (Default when nothing else exists),
// persisted as current. Deleting Default clears its contents; the name stays
// listed.
func (m *Manager) DeleteRecipe(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wasCurrent := name == m.current
	if !wasCurrent {
		if err := m.flushLocked(); err != nil {
			return err
		}
	}

	// A failed purge leaves the pending save and dirty rows in place.
	if err := m.purgeLocked(ctx, name); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	m.log.Info("deleted recipe", "recipe", name)

	if !wasCurrent {
		return nil
	}
	m.saver.Cancel()
	m.dirty = false

	next := recipe.DefaultRecipe
	names, err := m.dir.ListAllRecipeNames(ctx)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	for _, n := range names {
		if n != name {
			next = n
			break
		}
	}

	_, err = m.switchLocked(ctx, next, true)
	return err
}

// purgeLocked clears a recipe from the profile store, row store and
// metadata. The profile store goes first: it is the only step that can
// abort, and nothing else is touched when it does.
func (m *Manager) purgeLocked(ctx context.Context, name string) error {
	if err := m.profiles.DeleteRecipe(ctx, name); err != nil {
		return err
	}
	if err := m.local.Rows.Delete(name); err != nil {
		return err
	}
	return m.local.Meta.Delete(name)
}

// RenameRecipe moves a recipe's rows, profile records and metadata to a new
// name. The target must not exist yet.
func (m *Manager) RenameRecipe(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if strings.TrimSpace(from) == "" || to == "" {
		return ErrEmptyName
	}
	if from == to {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flushLocked(); err != nil {
		return err
	}

	names, err := m.dir.ListAllRecipeNames(ctx)
	if err != nil {
		return fmt.Errorf("rename recipe: %w", err)
	}
	if !contains(names, from) {
		return fmt.Errorf("rename %q: %w", from, ErrRecipeNotFound)
	}
	if contains(names, to) {
		return fmt.Errorf("rename to %q: %w", to, ErrRecipeExists)
	}

	records, err := m.profiles.GetItems(ctx, from)
	if err != nil {
		return fmt.Errorf("rename recipe: %w", err)
	}
	if len(records) > 0 {
		saved := make([]recipe.Row, 0, len(records))
		for _, rec := range records {
			saved = append(saved, recipe.Row{Name: rec.IngredientName, RecipeAmount: rec.RecipeAmount})
		}
		if err := m.profiles.PutItems(ctx, to, saved); err != nil {
			return fmt.Errorf("rename recipe: %w", err)
		}
	}

	rows, _ := m.Resolve(ctx, from)
	if err := m.local.Rows.Save(to, rows); err != nil {
		return fmt.Errorf("rename recipe: %w", err)
	}
	meta := m.local.Meta.Get(from)
	if !meta.IsZero() {
		if err := m.local.Meta.Set(to, meta); err != nil {
			return fmt.Errorf("rename recipe: %w", err)
		}
	}
	if err := m.purgeLocked(ctx, from); err != nil {
		return fmt.Errorf("rename recipe: %w", err)
	}

	if m.current == from {
		m.current = to
		if err := m.local.Settings.SetCurrentRecipe(to); err != nil {
			return fmt.Errorf("rename recipe: %w", err)
		}
	}
	m.log.Info("renamed recipe", "from", from, "to", to)
	return nil
}

// ReplaceRecipe overwrites a recipe's rows in the row store and profile
// store. When name is current the working rows are replaced too.
func (m *Manager) ReplaceRecipe(ctx context.Context, name string, rows []recipe.Row) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	rows = recipe.Normalize(recipe.Clone(rows))

	m.mu.Lock()
	defer m.mu.Unlock()

	if name == m.current {
		m.saver.Cancel()
	} else if err := m.flushLocked(); err != nil {
		return err
	}
	if err := m.profiles.PutItems(ctx, name, rows); err != nil {
		return fmt.Errorf("replace recipe: %w", err)
	}
	if err := m.local.Rows.Save(name, rows); err != nil {
		return fmt.Errorf("replace recipe: %w", err)
	}
	if name == m.current {
		m.rows = rows
		m.dirty = false
	}
	return nil
}

// Save is the explicit save: it writes the working rows, pushes their
// projection into the profile store and merges their pricing into the
// ingredient cache. A profile store transaction failure is returned.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saver.Cancel()
	if err := m.persistLocked(); err != nil {
		return err
	}
	if err := m.profiles.PutItems(ctx, m.current, m.rows); err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	m.log.Info("saved recipe", "recipe", m.current, "rows", len(m.rows))
	return nil
}

// FlushPending writes unsaved field edits now instead of waiting for the
// quiet period. It reports whether there was anything to write.
func (m *Manager) FlushPending() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	had := m.dirty
	return had, m.flushLocked()
}

// PendingSave reports whether a debounced save is armed.
func (m *Manager) PendingSave() bool {
	return m.saver.Pending()
}

// Close writes unsaved edits. It does not close the underlying stores.
func (m *Manager) Close() error {
	_, err := m.FlushPending()
	return err
}

// flushLocked writes the working rows if an edit has not been saved yet.
// It checks the dirty flag rather than the debouncer so a timer that fired
// but is still waiting for the lock cannot lose the edit.
func (m *Manager) flushLocked() error {
	m.saver.Cancel()
	if !m.dirty {
		return nil
	}
	return m.persistLocked()
}

// persistLocked writes the working rows under the current name and merges
// their pricing into the ingredient cache. Field edits reach the cache only
// here, so half-typed names never become cache entries.
func (m *Manager) persistLocked() error {
	if err := m.local.Rows.Save(m.current, m.rows); err != nil {
		return fmt.Errorf("persist rows: %w", err)
	}
	m.dirty = false
	if err := m.local.Ingredients.MergeFromRows(m.rows); err != nil {
		m.log.Warn("ingredient cache update failed", "recipe", m.current, "error", err)
	}
	return nil
}

// debouncedSave is the task armed by field edits.
func (m *Manager) debouncedSave() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return
	}
	if err := m.persistLocked(); err != nil {
		m.log.Error("debounced save failed", "recipe", m.current, "error", err)
		return
	}
	m.log.Debug("debounced save", "recipe", m.current, "rows", len(m.rows))
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
