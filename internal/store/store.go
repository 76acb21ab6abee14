package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added position column for stable record order
// 2 - Primary key moved from key to (recipe_name, ingredient_name)
const currentSchemaVersion = 2

// Store is the SQLite profile store.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	// beforeCommit runs inside the replace transaction just before commit.
	// Tests use it to force an abort.
	beforeCommit func() error
}

// Compile-time interface check.
var _ Profiles = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// OpenProfiles opens the SQLite store at path, or returns Disabled when
// the engine is unavailable. It never fails.
func OpenProfiles(path string, log *slog.Logger) Profiles {
	if log == nil {
		log = slog.Default()
	}
	s, err := Open(path, log)
	if err != nil {
		log.Warn("profile store unavailable, continuing without profile persistence",
			"path", path, "error", err)
		return Disabled{}
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Enabled reports true: the SQLite store persists profiles.
func (s *Store) Enabled() bool {
	return true
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Databases created before v1 lack the position column; CREATE TABLE IF
	// NOT EXISTS would leave them untouched, so migrate first.
	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the position column to a profiles table created by the
// initial schema. A fresh database has no table yet and gets the column from
// schema.sql.
func migrateToV1(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'profiles'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if count == 0 {
		return nil
	}

	var hasPosition int
	err = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('profiles') WHERE name = 'position'`).Scan(&hasPosition)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if hasPosition > 0 {
		return nil
	}

	if _, err := db.Exec(`ALTER TABLE profiles ADD COLUMN position INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 rebuilds a keyed profiles table with the (recipe_name,
// ingredient_name) primary key. The old table is renamed aside, schema.sql
// creates the new one, and the records are copied across in one transaction.
func migrateToV2(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'profiles'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	if count == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	steps := []string{
		`ALTER TABLE profiles RENAME TO profiles_v1`,
		schemaSQL,
		`INSERT OR REPLACE INTO profiles (key, recipe_name, ingredient_name, recipe_amount, position)
		 SELECT key, recipe_name, ingredient_name, recipe_amount, position FROM profiles_v1`,
		`DROP TABLE profiles_v1`,
	}
	for _, step := range steps {
		if _, err := tx.Exec(step); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
