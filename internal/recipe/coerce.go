package recipe

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coerce converts arbitrary input into a finite number, defaulting to 0.
//
// Accepted inputs are Go numeric types, json.Number and strings. Strings are
// trimmed; a single decimal comma ("12,5") is accepted. Anything else,
// including NaN and infinities, yields 0.
func Coerce(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		f = parseNumber(val)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceAmount is Coerce clamped at zero. Row quantities and prices are
// never negative.
func CoerceAmount(v any) float64 {
	f := Coerce(v)
	if f < 0 {
		return 0
	}
	return f
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseRow builds a Row from a loosely typed persisted record.
// Missing or malformed fields default to the zero value.
func ParseRow(m map[string]any) Row {
	var name string
	if s, ok := m["name"].(string); ok {
		name = s
	}
	return Row{
		Name:         name,
		Cost:         CoerceAmount(m["cost"]),
		Amount:       CoerceAmount(m["amount"]),
		RecipeAmount: CoerceAmount(m["recipeAmount"]),
	}
}

// ParseRows decodes a JSON array of row-shaped records. The second result is
// false when data is not a JSON array; elements that are not objects are
// treated as blank rows.
func ParseRows(data []byte) ([]Row, bool) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	rows := make([]Row, 0, len(raw))
	for _, elem := range raw {
		var m map[string]any
		if err := json.Unmarshal(elem, &m); err != nil || m == nil {
			rows = append(rows, BlankRow())
			continue
		}
		rows = append(rows, ParseRow(m))
	}
	return Normalize(rows), true
}
