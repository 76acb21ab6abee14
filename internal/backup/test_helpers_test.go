package backup

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/session"
	"github.com/roach88/costbook/internal/store"
	"github.com/roach88/costbook/internal/testutil"
)

var exportTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type testEnv struct {
	codec    *Codec
	m        *session.Manager
	local    *kv.Local
	profiles *store.Store
}

// createTestEnv builds a codec over fresh bbolt and SQLite files with a
// fixed clock and export id.
func createTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	engine, err := kv.Open(filepath.Join(dir, "costbook.db"))
	require.NoError(t, err)
	local := kv.NewLocal(engine, discardLogger(), recipe.DefaultMarginPct)
	t.Cleanup(func() { local.Close() })

	profiles, err := store.Open(filepath.Join(dir, "profiles.sqlite"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { profiles.Close() })

	m := session.New(local, profiles,
		session.WithScheduler(testutil.NewManualScheduler()),
		session.WithLogger(discardLogger()),
	)
	codec := NewCodec(m,
		WithClock(testutil.NewFixedClock(exportTime)),
		WithIDGenerator(testutil.NewFixedIDGenerator("export-1")),
		WithLogger(discardLogger()),
	)
	return &testEnv{codec: codec, m: m, local: local, profiles: profiles}
}

// seedCake creates the Cake recipe with one Flour row, saved and filed.
func seedCake(t *testing.T, m *session.Manager) {
	t.Helper()
	ctx := context.Background()

	_, err := m.CreateRecipe(ctx, "Cake")
	require.NoError(t, err)
	for field, value := range map[session.Field]string{
		session.FieldName:         "Flour",
		session.FieldCost:         "1290",
		session.FieldAmount:       "1000",
		session.FieldRecipeAmount: "300",
	} {
		_, err := m.RecordEdit(0, field, value)
		require.NoError(t, err)
	}
	require.NoError(t, m.Save(ctx))
	require.NoError(t, m.SetFavorite(ctx, "Cake", true))
	require.NoError(t, m.SetFolder(ctx, "Cake", "Desserts"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
