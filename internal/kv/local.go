package kv

import "log/slog"

// Local bundles the typed stores that share one engine.
type Local struct {
	Engine      Engine
	Rows        *RowStore
	Ingredients *IngredientCache
	Settings    *Settings
	Meta        *MetaStore
}

// NewLocal builds every typed store on engine.
func NewLocal(engine Engine, log *slog.Logger, defaultMargin float64) *Local {
	return &Local{
		Engine:      engine,
		Rows:        NewRowStore(engine, log),
		Ingredients: NewIngredientCache(engine, log),
		Settings:    NewSettings(engine, log, defaultMargin),
		Meta:        NewMetaStore(engine, log),
	}
}

// Close closes the underlying engine.
func (l *Local) Close() error {
	return l.Engine.Close()
}
