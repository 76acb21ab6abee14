package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/testutil"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddInvocationTrace("boot", nil, 1)
	r.AddCompletionTrace(CaseOK, nil, 2)
	r.AddInvocationTrace("edit", map[string]any{"row": float64(0), "field": "cost", "value": "5"}, 3)
	r.AddCompletionTrace(CaseOK, nil, 4)
	r.AddInvocationTrace("save", nil, 5)
	r.AddCompletionTrace(CaseOK, nil, 6)
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "edit", Args: map[string]any{"field": "cost"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "edit", Args: map[string]any{"row": 0}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "save"}))

	err := assertTraceContains(trace, Assertion{Action: "edit", Args: map[string]any{"field": "name"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[3] edit")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"boot", "save"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"boot", "edit", "save"}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{"save", "boot"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save (pos 5) should be before boot (pos 1)")

	err = assertTraceOrder(trace, Assertion{Actions: []string{"boot", "export"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: export")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "edit", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "delete", Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: "edit", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 occurrences of edit")
}

func TestMatchValue(t *testing.T) {
	actual := normalize(map[string]any{
		"current": "Cake",
		"rows": []recipe.Row{
			{Name: "Flour", Cost: 1290, Amount: 1000, RecipeAmount: 300},
		},
	})

	tests := []struct {
		name     string
		expected any
		want     bool
	}{
		{"scalar subset", map[string]any{"current": "Cake"}, true},
		{"nested row subset", map[string]any{"rows": []any{map[string]any{"name": "Flour", "cost": 1290}}}, true},
		{"int against float", map[string]any{"rows": []any{map[string]any{"recipeAmount": 300}}}, true},
		{"wrong value", map[string]any{"current": "Pie"}, false},
		{"missing key", map[string]any{"folder": "x"}, false},
		{"list length differs", map[string]any{"rows": []any{}}, false},
		{"type differs", map[string]any{"rows": "Flour"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchValue(actual, normalize(tt.expected)))
		})
	}
}

func TestMatchArgs_EmptyExpectationMatchesAnything(t *testing.T) {
	assert.True(t, matchArgs(nil, nil))
	assert.True(t, matchArgs("anything", map[string]any{}))
	assert.False(t, matchArgs(nil, map[string]any{"a": 1.0}))
}

func TestEvaluateAssertions_StateNeedsContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertCurrent, Value: "Default"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires store context")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "final_state"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "final_state"`)
}

func TestEvaluateAssertions_State(t *testing.T) {
	engine := testutil.NewRecordingEngine(kv.NewMemoryEngine())
	local := kv.NewLocal(engine, nil, recipe.DefaultMarginPct)
	require.NoError(t, local.Rows.Save("Cake", []recipe.Row{{Name: "Flour", Cost: 1290, Amount: 1000, RecipeAmount: 300}}))
	require.NoError(t, local.Meta.Set("Cake", recipe.Meta{Favorite: true, Folder: "Desserts"}))
	require.NoError(t, local.Settings.SetCurrentRecipe("Cake"))

	actx := &AssertionContext{Ctx: context.Background(), Local: local, Engine: engine}
	assertions := []Assertion{
		{Type: AssertRows, Recipe: "Cake", Expect: []any{map[string]any{"name": "Flour", "recipeAmount": 300}}},
		{Type: AssertRows, Recipe: "Pie", Absent: true},
		{Type: AssertMeta, Recipe: "Cake", Expect: map[string]any{"folder": "Desserts", "favorite": true}},
		{Type: AssertCurrent, Value: "Cake"},
		{Type: AssertWrites, Prefix: "rows/", Count: 1},
		{Type: AssertCache, Ingredient: "Flour", Absent: true},
	}

	errs := EvaluateAssertions(NewResult(), assertions, actx)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_MissingCollaborators(t *testing.T) {
	local := kv.NewLocal(kv.NewMemoryEngine(), nil, recipe.DefaultMarginPct)
	actx := &AssertionContext{Local: local}

	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertProfile, Recipe: "Cake", Absent: true},
		{Type: AssertRecipes, Names: []string{}},
		{Type: AssertWrites, Prefix: "rows/"},
	}, actx)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "requires a profile store")
	assert.Contains(t, errs[1], "requires a session")
	assert.Contains(t, errs[2], "requires a recording engine")
}
