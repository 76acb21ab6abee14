package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/session"
)

// Mode selects how Import treats local recipes missing from the document.
type Mode string

const (
	ModeMerge     Mode = "merge"
	ModeOverwrite Mode = "overwrite"
)

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMerge, ModeOverwrite:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown import mode %q (want merge or overwrite)", s)
}

// Clock provides the export timestamp.
type Clock interface {
	Now() time.Time
}

// IDGenerator provides export identifiers.
type IDGenerator interface {
	Generate() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// UUIDv7Generator generates time-sortable UUIDv7 export ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string. Panics if the system random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the clock used for exportedAt.
func WithClock(c Clock) Option {
	return func(codec *Codec) { codec.clock = c }
}

// WithIDGenerator sets the generator used for exportId.
func WithIDGenerator(g IDGenerator) Option {
	return func(codec *Codec) { codec.ids = g }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(codec *Codec) { codec.log = log }
}

// Codec exports and imports backup documents through a session.Manager.
type Codec struct {
	m     *session.Manager
	clock Clock
	ids   IDGenerator
	log   *slog.Logger
}

// NewCodec creates a codec over m.
func NewCodec(m *session.Manager, opts ...Option) *Codec {
	c := &Codec{
		m:     m,
		clock: systemClock{},
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Export bundles every known recipe with metadata, folders and settings.
// Unsaved field edits are flushed first.
func (c *Codec) Export(ctx context.Context) (*Document, error) {
	if _, err := c.m.FlushPending(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	names, err := c.m.ListAllRecipeNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	doc := &Document{
		App:           App,
		SchemaVersion: SchemaVersion,
		ExportID:      c.ids.Generate(),
		ExportedAt:    c.clock.Now().UTC().Format(time.RFC3339),
		CurrentRecipe: c.m.Current(),
		Settings: Settings{
			MarginPct:       c.m.MarginPct(),
			IngredientCache: c.m.Ingredients(),
		},
		Folders: c.m.Folders(),
		Recipes: make(map[string]Recipe, len(names)),
	}
	for _, name := range names {
		doc.Recipes[name] = Recipe{
			Rows: c.m.EnsureRows(ctx, name),
			Meta: c.m.Meta(name),
		}
	}

	c.log.Info("exported backup", "recipes", len(doc.Recipes), "export_id", doc.ExportID)
	return doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// ExportTo exports and encodes in one step.
func (c *Codec) ExportTo(ctx context.Context, w io.Writer) (*Document, error) {
	doc, err := c.Export(ctx)
	if err != nil {
		return nil, err
	}
	if err := Encode(w, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Result summarizes an import.
type Result struct {
	Mode     Mode     `json:"mode"`
	Imported []string `json:"imported"`
	Pruned   []string `json:"pruned"`
	Current  string   `json:"current"`
}

// Import validates data and applies it. A document that fails validation is
// rejected with a *ValidationError before any store is written.
func (c *Codec) Import(ctx context.Context, data []byte, mode Mode) (*Result, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Apply(ctx, doc, mode)
}

// ImportFile reads path and imports it. Read failures wrap ErrFileRead.
func (c *Codec) ImportFile(ctx context.Context, path string, mode Mode) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	return c.Import(ctx, data, mode)
}

// Apply writes an already decoded document.
func (c *Codec) Apply(ctx context.Context, doc *Document, mode Mode) (*Result, error) {
	if _, err := c.m.FlushPending(); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	res := &Result{Mode: mode, Imported: doc.Names(), Pruned: []string{}}

	meta := make(map[string]recipe.Meta, len(doc.Recipes))
	for _, name := range res.Imported {
		r := doc.Recipes[name]
		if err := c.m.ReplaceRecipe(ctx, name, r.Rows); err != nil {
			return nil, fmt.Errorf("import %q: %w", name, err)
		}
		meta[name] = r.Meta
	}
	if err := c.m.MergeMeta(meta); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if err := c.m.MergeFolders(doc.Folders); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if err := c.m.MergeIngredients(doc.Settings.IngredientCache); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if err := c.m.SetMargin(doc.Settings.MarginPct); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	if mode == ModeOverwrite {
		local, err := c.m.ListAllRecipeNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		for _, name := range local {
			if _, ok := doc.Recipes[name]; ok {
				continue
			}
			if err := c.m.DeleteRecipe(ctx, name); err != nil {
				return nil, fmt.Errorf("import: prune %q: %w", name, err)
			}
			res.Pruned = append(res.Pruned, name)
		}
	}

	if _, ok := doc.Recipes[doc.CurrentRecipe]; ok {
		if _, err := c.m.SwitchRecipe(ctx, doc.CurrentRecipe, true); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
	}
	res.Current = c.m.Current()

	c.log.Info("imported backup",
		"mode", mode,
		"recipes", len(res.Imported),
		"pruned", len(res.Pruned),
		"current", res.Current,
	)
	return res, nil
}
