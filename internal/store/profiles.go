package store

import (
	"context"
	"fmt"

	"github.com/roach88/costbook/internal/recipe"
)

// Profiles is the profile store contract. *Store and Disabled implement it.
type Profiles interface {
	// ListRecipeNames returns the distinct recipe names across all records,
	// sorted.
	ListRecipeNames(ctx context.Context) ([]string, error)
	// GetItems returns the records of one recipe in the order they were put.
	GetItems(ctx context.Context, recipeName string) ([]recipe.ProfileRecord, error)
	// PutItems atomically replaces the records of recipeName with the
	// projection of rows.
	PutItems(ctx context.Context, recipeName string, rows []recipe.Row) error
	// DeleteRecipe atomically deletes every record of recipeName.
	DeleteRecipe(ctx context.Context, recipeName string) error
	// Enabled reports whether records are actually persisted.
	Enabled() bool
	Close() error
}

// ListRecipeNames returns distinct recipe names, sorted by byte order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRecipeNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT recipe_name
		FROM profiles
		ORDER BY recipe_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list recipe names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan recipe name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipe names: %w", err)
	}
	return names, nil
}

// GetItems returns the records of recipeName ordered by position.
// Returns an empty slice (not nil) if the recipe has no records.
func (s *Store) GetItems(ctx context.Context, recipeName string) ([]recipe.ProfileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, recipe_name, ingredient_name, recipe_amount
		FROM profiles
		WHERE recipe_name = ?
		ORDER BY position ASC, ingredient_name COLLATE BINARY ASC
	`, recipeName)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	records := []recipe.ProfileRecord{}
	for rows.Next() {
		var rec recipe.ProfileRecord
		if err := rows.Scan(&rec.Key, &rec.RecipeName, &rec.IngredientName, &rec.RecipeAmount); err != nil {
			return nil, fmt.Errorf("scan profile record: %w", err)
		}
		rec.RecipeAmount = recipe.CoerceAmount(rec.RecipeAmount)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile records: %w", err)
	}
	return records, nil
}

// replacePlan is everything PutItems needs before it opens the transaction.
type replacePlan struct {
	recipeName string
	records    []recipe.ProfileRecord
	existing   int
}

// PutItems replaces the records of recipeName with the projection of rows.
// Rows with empty trimmed names are skipped; duplicate ingredient names
// collapse, last write wins.
//
// All reads finish before the write transaction opens. Calling PutItems
// twice with the same rows leaves the same records as calling it once.
func (s *Store) PutItems(ctx context.Context, recipeName string, rows []recipe.Row) error {
	plan, err := s.planReplace(ctx, recipeName, rows)
	if err != nil {
		return fmt.Errorf("put items: %w", err)
	}
	if err := s.applyReplace(ctx, plan); err != nil {
		return err
	}
	s.log.Debug("profile replaced",
		"recipe", recipeName, "removed", plan.existing, "inserted", len(plan.records))
	return nil
}

// planReplace performs every read the replace needs.
func (s *Store) planReplace(ctx context.Context, recipeName string, rows []recipe.Row) (*replacePlan, error) {
	var existing int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles WHERE recipe_name = ?`, recipeName,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("count existing records: %w", err)
	}

	return &replacePlan{
		recipeName: recipeName,
		records:    recipe.Projection(recipeName, rows),
		existing:   existing,
	}, nil
}

// applyReplace deletes and inserts inside one transaction. It performs no
// reads.
func (s *Store) applyReplace(ctx context.Context, plan *replacePlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newTxError("put items", plan.recipeName, "begin", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM profiles WHERE recipe_name = ?`, plan.recipeName,
	); err != nil {
		return newTxError("put items", plan.recipeName, "delete", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profiles (key, recipe_name, ingredient_name, recipe_amount, position)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(recipe_name, ingredient_name) DO UPDATE SET
			key = excluded.key,
			recipe_amount = excluded.recipe_amount,
			position = excluded.position
	`)
	if err != nil {
		return newTxError("put items", plan.recipeName, "prepare", err)
	}
	defer stmt.Close()

	for i, rec := range plan.records {
		if _, err := stmt.ExecContext(ctx, rec.Key, rec.RecipeName, rec.IngredientName, rec.RecipeAmount, i); err != nil {
			return newTxError("put items", plan.recipeName, "insert", err)
		}
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(); err != nil {
			return newTxError("put items", plan.recipeName, "commit", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newTxError("put items", plan.recipeName, "commit", err)
	}
	return nil
}

// DeleteRecipe deletes every record of recipeName in one transaction.
func (s *Store) DeleteRecipe(ctx context.Context, recipeName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newTxError("delete recipe", recipeName, "begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE recipe_name = ?`, recipeName)
	if err != nil {
		return newTxError("delete recipe", recipeName, "delete", err)
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(); err != nil {
			return newTxError("delete recipe", recipeName, "commit", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newTxError("delete recipe", recipeName, "commit", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		s.log.Debug("profile deleted", "recipe", recipeName, "removed", n)
	}
	return nil
}
