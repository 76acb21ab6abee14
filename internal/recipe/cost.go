package recipe

import "math"

// UnitCost returns the price of one purchased unit, or 0 when Amount is 0.
func (r Row) UnitCost() float64 {
	if r.Amount > 0 {
		return r.Cost / r.Amount
	}
	return 0
}

// LineCost returns what this row contributes to one batch.
func (r Row) LineCost() float64 {
	return r.UnitCost() * r.RecipeAmount
}

// TotalCost sums LineCost over rows.
func TotalCost(rows []Row) float64 {
	var total float64
	for _, r := range rows {
		total += r.LineCost()
	}
	return total
}

// FinalPrice applies a margin percentage to total and rounds to the nearest
// integer, halves rounding up.
func FinalPrice(total, marginPct float64) int {
	price := total * (1 + marginPct/100)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return int(math.Floor(price + 0.5))
}
