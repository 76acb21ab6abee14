package session

import (
	"fmt"
	"strings"

	"github.com/roach88/costbook/internal/recipe"
)

// Field names one editable column of a row.
type Field string

const (
	FieldName         Field = "name"
	FieldCost         Field = "cost"
	FieldAmount       Field = "amount"
	FieldRecipeAmount Field = "recipeAmount"
)

// ParseField maps user input to a Field. Matching ignores case, and
// "recipe-amount", "recipe_amount" and "qty" are accepted for RecipeAmount.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return FieldName, nil
	case "cost", "price":
		return FieldCost, nil
	case "amount":
		return FieldAmount, nil
	case "recipeamount", "recipe-amount", "recipe_amount", "qty":
		return FieldRecipeAmount, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownField)
}

// Line is one row with its derived costs.
type Line struct {
	Row      recipe.Row `json:"row"`
	UnitCost float64    `json:"unitCost"`
	LineCost float64    `json:"lineCost"`
}

// Summary is the presentation view of the working rows.
type Summary struct {
	Recipe     string  `json:"recipe"`
	Lines      []Line  `json:"lines"`
	Total      float64 `json:"total"`
	MarginPct  float64 `json:"marginPct"`
	FinalPrice int     `json:"finalPrice"`
}

// TotalCost sums the line costs of rows.
func TotalCost(rows []recipe.Row) float64 {
	return recipe.TotalCost(rows)
}

// FinalPrice applies marginPct to total, rounded to an integer.
func FinalPrice(total, marginPct float64) int {
	return recipe.FinalPrice(total, marginPct)
}

// RecordEdit sets one field of working row index. The name is stored
// verbatim; numeric fields go through recipe.CoerceAmount so malformed input
// becomes 0. The row store write is debounced, and the ingredient cache
// picks up the edit when that write lands.
func (m *Manager) RecordEdit(index int, field Field, value string) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.rows) {
		return Summary{}, fmt.Errorf("edit row %d of %d: %w", index, len(m.rows), ErrRowIndex)
	}

	row := m.rows[index]
	switch field {
	case FieldName:
		row.Name = value
	case FieldCost:
		row.Cost = recipe.CoerceAmount(value)
	case FieldAmount:
		row.Amount = recipe.CoerceAmount(value)
	case FieldRecipeAmount:
		row.RecipeAmount = recipe.CoerceAmount(value)
	default:
		return Summary{}, fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	m.rows[index] = row
	m.dirty = true

	m.saver.Schedule(m.debouncedSave)
	return m.summaryLocked(), nil
}

// AddRow appends a blank row and saves immediately.
func (m *Manager) AddRow() ([]recipe.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, recipe.BlankRow())
	m.saver.Cancel()
	if err := m.persistLocked(); err != nil {
		return nil, err
	}
	return recipe.Clone(m.rows), nil
}

// DeleteRow removes the row at index and saves immediately. Removing the
// last row leaves a single blank row.
func (m *Manager) DeleteRow(index int) ([]recipe.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.rows) {
		return nil, fmt.Errorf("delete row %d of %d: %w", index, len(m.rows), ErrRowIndex)
	}

	next := make([]recipe.Row, 0, len(m.rows)-1)
	next = append(next, m.rows[:index]...)
	next = append(next, m.rows[index+1:]...)
	m.rows = recipe.Normalize(next)

	m.saver.Cancel()
	if err := m.persistLocked(); err != nil {
		return nil, err
	}
	return recipe.Clone(m.rows), nil
}

// Totals returns the working rows with derived costs and the price at the
// stored margin.
func (m *Manager) Totals() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryLocked()
}

func (m *Manager) summaryLocked() Summary {
	return Summarize(m.current, m.rows, m.local.Settings.MarginPct())
}

// Summarize computes the presentation view of any row set.
func Summarize(name string, rows []recipe.Row, marginPct float64) Summary {
	lines := make([]Line, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, Line{Row: r, UnitCost: r.UnitCost(), LineCost: r.LineCost()})
	}
	total := recipe.TotalCost(rows)
	return Summary{
		Recipe:     name,
		Lines:      lines,
		Total:      total,
		MarginPct:  marginPct,
		FinalPrice: recipe.FinalPrice(total, marginPct),
	}
}

// MarginPct returns the stored margin percentage.
func (m *Manager) MarginPct() float64 {
	return m.local.Settings.MarginPct()
}

// SetMargin persists a new margin percentage.
func (m *Manager) SetMargin(pct float64) error {
	if err := m.local.Settings.SetMarginPct(pct); err != nil {
		return fmt.Errorf("set margin: %w", err)
	}
	return nil
}
