package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/session"
	"github.com/roach88/costbook/internal/store"
	"github.com/roach88/costbook/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Action, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected := normalizeMap(assertion.Args)
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			if matchArgs(event.Args, expected) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		for _, expectedAction := range assertion.Actions {
			if event.Action == expectedAction && positions[expectedAction] == 0 {
				positions[expectedAction] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertRows checks the Row Store entry of a recipe.
func assertRows(local *kv.Local, assertion Assertion) error {
	rows, found := local.Rows.Load(assertion.Recipe)
	if assertion.Absent {
		if found {
			return &AssertionError{
				Type:     AssertRows,
				Expected: fmt.Sprintf("no rows stored for %q", assertion.Recipe),
				Actual:   fmt.Sprintf("%v", normalize(rows)),
			}
		}
		return nil
	}
	if !found {
		return &AssertionError{
			Type:     AssertRows,
			Expected: fmt.Sprintf("rows for %q: %v", assertion.Recipe, normalize(assertion.Expect)),
			Actual:   "no rows stored",
		}
	}
	return compareState(AssertRows, assertion.Recipe, normalize(rows), assertion.Expect)
}

// assertProfile checks the Profile Store records of a recipe.
func assertProfile(ctx context.Context, profiles store.Profiles, assertion Assertion) error {
	items, err := profiles.GetItems(ctx, assertion.Recipe)
	if err != nil {
		return &AssertionError{
			Type:     AssertProfile,
			Expected: fmt.Sprintf("profile records for %q", assertion.Recipe),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if assertion.Absent {
		if len(items) > 0 {
			return &AssertionError{
				Type:     AssertProfile,
				Expected: fmt.Sprintf("no profile records for %q", assertion.Recipe),
				Actual:   fmt.Sprintf("%v", normalize(items)),
			}
		}
		return nil
	}
	return compareState(AssertProfile, assertion.Recipe, normalize(items), assertion.Expect)
}

// assertCache checks one Ingredient Cache entry.
func assertCache(local *kv.Local, assertion Assertion) error {
	entry, found := local.Ingredients.Get(assertion.Ingredient)
	if assertion.Absent {
		if found {
			return &AssertionError{
				Type:     AssertCache,
				Expected: fmt.Sprintf("no cache entry for %q", assertion.Ingredient),
				Actual:   fmt.Sprintf("%v", normalize(entry)),
			}
		}
		return nil
	}
	if !found {
		return &AssertionError{
			Type:     AssertCache,
			Expected: fmt.Sprintf("cache entry for %q: %v", assertion.Ingredient, normalize(assertion.Expect)),
			Actual:   "no entry",
		}
	}
	return compareState(AssertCache, assertion.Ingredient, normalize(entry), assertion.Expect)
}

// assertMeta checks the metadata of a recipe.
func assertMeta(local *kv.Local, assertion Assertion) error {
	return compareState(AssertMeta, assertion.Recipe, normalize(local.Meta.Get(assertion.Recipe)), assertion.Expect)
}

// assertCurrent checks the persisted current recipe pointer.
func assertCurrent(local *kv.Local, assertion Assertion) error {
	if got := local.Settings.CurrentRecipe(); got != assertion.Value {
		return &AssertionError{
			Type:     AssertCurrent,
			Expected: fmt.Sprintf("current recipe %q", assertion.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

// assertRecipes checks the full, sorted recipe listing.
func assertRecipes(ctx context.Context, m *session.Manager, assertion Assertion) error {
	names, err := m.ListAllRecipeNames(ctx)
	if err != nil {
		return fmt.Errorf("list recipes: %w", err)
	}
	if !slices.Equal(names, assertion.Names) {
		return &AssertionError{
			Type:     AssertRecipes,
			Expected: fmt.Sprintf("%v", assertion.Names),
			Actual:   fmt.Sprintf("%v", names),
		}
	}
	return nil
}

// assertWrites counts key/value writes and deletes made by the flow.
func assertWrites(engine *testutil.RecordingEngine, assertion Assertion) error {
	writes := engine.Writes(assertion.Prefix)
	if len(writes) != assertion.Count {
		keys := make([]string, len(writes))
		for i, w := range writes {
			keys[i] = w.Key
		}
		return &AssertionError{
			Type:     AssertWrites,
			Expected: fmt.Sprintf("%d writes under %q", assertion.Count, assertion.Prefix),
			Actual:   fmt.Sprintf("%d writes: %v", len(writes), keys),
		}
	}
	return nil
}

func compareState(kind, subject string, actual, expected any) error {
	if matchValue(actual, normalize(expected)) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s %q: %v", kind, subject, normalize(expected)),
		Actual:   fmt.Sprintf("%v", actual),
	}
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	return matchValue(actual, expected)
}

// matchValue compares normalized values. Maps match as subsets, recursively;
// lists must have the same length and match element by element.
func matchValue(actual, expected any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, expectedVal := range exp {
			actualVal, exists := act[key]
			if !exists || !matchValue(actualVal, expectedVal) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(act[i], exp[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

// AssertionContext provides the stores assertions read from.
type AssertionContext struct {
	Ctx      context.Context
	Local    *kv.Local
	Profiles store.Profiles
	Manager  *session.Manager
	Engine   *testutil.RecordingEngine
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// State assertions need actx; trace assertions only need the result.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertRows, AssertProfile, AssertCache, AssertMeta,
			AssertCurrent, AssertRecipes, AssertWrites:
			if actx == nil || actx.Local == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
				break
			}
			err = evaluateState(actx, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func evaluateState(actx *AssertionContext, assertion Assertion) error {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	switch assertion.Type {
	case AssertRows:
		return assertRows(actx.Local, assertion)
	case AssertProfile:
		if actx.Profiles == nil {
			return fmt.Errorf("profile assertion requires a profile store")
		}
		return assertProfile(ctx, actx.Profiles, assertion)
	case AssertCache:
		return assertCache(actx.Local, assertion)
	case AssertMeta:
		return assertMeta(actx.Local, assertion)
	case AssertCurrent:
		return assertCurrent(actx.Local, assertion)
	case AssertRecipes:
		if actx.Manager == nil {
			return fmt.Errorf("recipes assertion requires a session")
		}
		return assertRecipes(ctx, actx.Manager, assertion)
	case AssertWrites:
		if actx.Engine == nil {
			return fmt.Errorf("writes assertion requires a recording engine")
		}
		return assertWrites(actx.Engine, assertion)
	}
	return fmt.Errorf("unknown state assertion %q", assertion.Type)
}
