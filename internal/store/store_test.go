package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "profiles.sqlite")

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path, discardLogger())
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"profiles",
	).Scan(&name)
	if err != nil {
		t.Errorf("table profiles not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Parent "directory" is a regular file
	_, err := Open(filepath.Join(blocker, "test.db"), discardLogger())
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpenProfiles_DegradesToDisabled(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := OpenProfiles(filepath.Join(blocker, "test.db"), discardLogger())
	if p.Enabled() {
		t.Fatal("expected disabled profile store")
	}
	if _, ok := p.(Disabled); !ok {
		t.Errorf("expected Disabled, got %T", p)
	}
}

func TestOpenProfiles_Enabled(t *testing.T) {
	p := OpenProfiles(filepath.Join(t.TempDir(), "p.sqlite"), discardLogger())
	defer p.Close()
	if !p.Enabled() {
		t.Fatal("expected enabled profile store")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestSchemaVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}
}

func TestMigrateToV1_AddsPositionColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Initial schema without the position column
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`
		CREATE TABLE profiles (
			key TEXT PRIMARY KEY,
			recipe_name TEXT NOT NULL,
			ingredient_name TEXT NOT NULL,
			recipe_amount REAL NOT NULL DEFAULT 0
		);
		INSERT INTO profiles VALUES ('Cake::Flour', 'Cake', 'Flour', 300);
	`)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open() on legacy database failed: %v", err)
	}
	defer s.Close()

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('profiles') WHERE name = 'position'`).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatal("position column missing after migration")
	}

	items, err := s.GetItems(t.Context(), "Cake")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].RecipeAmount != 300 {
		t.Errorf("legacy record not preserved: %+v", items)
	}
}

func TestMigrateToV2_MovesPrimaryKeyToRecipeAndIngredient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")

	// Version 1 schema, keyed by the joined name
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`
		CREATE TABLE profiles (
			key TEXT PRIMARY KEY,
			recipe_name TEXT NOT NULL,
			ingredient_name TEXT NOT NULL,
			recipe_amount REAL NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX idx_profiles_recipe ON profiles(recipe_name);
		INSERT INTO profiles VALUES ('Cake::Sugar', 'Cake', 'Sugar', 50, 1);
		INSERT INTO profiles VALUES ('Cake::Flour', 'Cake', 'Flour', 300, 0);
		PRAGMA user_version = 1;
	`)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open() on v1 database failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}

	var pkCols int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('profiles') WHERE pk > 0`).Scan(&pkCols)
	if err != nil {
		t.Fatal(err)
	}
	if pkCols != 2 {
		t.Errorf("primary key has %d columns, expected 2", pkCols)
	}

	var leftovers int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'profiles_v1'`).Scan(&leftovers)
	if err != nil {
		t.Fatal(err)
	}
	if leftovers != 0 {
		t.Error("old table not dropped")
	}

	items, err := s.GetItems(t.Context(), "Cake")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].IngredientName != "Flour" || items[1].RecipeAmount != 50 {
		t.Errorf("v1 records not preserved in order: %+v", items)
	}
}
