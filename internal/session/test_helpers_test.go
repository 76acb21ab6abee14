package session

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/store"
	"github.com/roach88/costbook/internal/testutil"
)

// testEnv bundles a Manager with direct handles on its stores.
type testEnv struct {
	m        *Manager
	local    *kv.Local
	engine   *testutil.RecordingEngine
	profiles *store.Store
	sched    *testutil.ManualScheduler
}

// createTestEnv builds a Manager over bbolt and SQLite files in a temp dir,
// driven by a manual scheduler.
func createTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	bolt, err := kv.Open(filepath.Join(dir, "costbook.db"))
	require.NoError(t, err)
	engine := testutil.NewRecordingEngine(bolt)
	local := kv.NewLocal(engine, discardLogger(), recipe.DefaultMarginPct)
	t.Cleanup(func() { local.Close() })

	profiles, err := store.Open(filepath.Join(dir, "profiles.sqlite"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { profiles.Close() })

	sched := testutil.NewManualScheduler()
	m := New(local, profiles,
		WithScheduler(sched),
		WithDebounce(DefaultDebounce),
		WithLogger(discardLogger()),
	)
	return &testEnv{m: m, local: local, engine: engine, profiles: profiles, sched: sched}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
