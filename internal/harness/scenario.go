package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a recipe-session scenario.
// Scenarios seed the stores, drive a flow of session and backup operations
// and assert on the resulting trace and the persisted state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup writes directly to the stores before the session starts.
	// Setup steps must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the operations under test, each with an optional
	// expected completion.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is a setup action with its arguments.
type ActionStep struct {
	// Action is one of the seed_* setup actions.
	Action string `yaml:"action"`

	// Args contains the action arguments as a map.
	Args map[string]any `yaml:"args"`
}

// FlowStep invokes one operation and optionally validates the completion.
type FlowStep struct {
	// Invoke names the operation (e.g. "edit", "switch").
	Invoke string `yaml:"invoke"`

	// Args contains the operation arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected completion.
	// If nil, the step must complete with CaseOK.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected output case (e.g. "ok", "row_index").
	Case string `yaml:"case"`

	// Result contains expected result field values.
	// This is a subset match: only specified fields are validated.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the persisted state.
type Assertion struct {
	// Type selects the assertion; see the Assert* constants.
	Type string `yaml:"type"`

	// Action is the operation name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected invocation arguments (trace_contains).
	// Subset match.
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (trace_count, writes).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected operation order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Recipe names the recipe (rows, profile, meta).
	Recipe string `yaml:"recipe,omitempty"`

	// Ingredient names the cache entry (cache).
	Ingredient string `yaml:"ingredient,omitempty"`

	// Prefix selects key/value writes by key prefix (writes).
	Prefix string `yaml:"prefix,omitempty"`

	// Value is the expected current recipe (current).
	Value string `yaml:"value,omitempty"`

	// Names is the expected recipe listing (recipes).
	Names []string `yaml:"names,omitempty"`

	// Absent asserts that nothing is stored (rows, profile, cache).
	Absent bool `yaml:"absent,omitempty"`

	// Expect is the expected stored value: a row list (rows), a list of
	// {ingredientName, recipeAmount} records (profile), {cost, amount}
	// (cache) or {favorite, folder} (meta). Subset match for maps.
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRows          = "rows"
	AssertProfile       = "profile"
	AssertCache         = "cache"
	AssertCurrent       = "current"
	AssertRecipes       = "recipes"
	AssertWrites        = "writes"
	AssertMeta          = "meta"
)

// Setup action constants.
const (
	SeedRows        = "seed_rows"
	SeedLegacyRows  = "seed_legacy_rows"
	SeedProfile     = "seed_profile"
	SeedIngredients = "seed_ingredients"
	SeedCurrent     = "seed_current"
	SeedMargin      = "seed_margin"
	SeedRaw         = "seed_raw"
)

var setupActions = map[string]bool{
	SeedRows:        true,
	SeedLegacyRows:  true,
	SeedProfile:     true,
	SeedIngredients: true,
	SeedCurrent:     true,
	SeedMargin:      true,
	SeedRaw:         true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Action == "" {
			return fmt.Errorf("setup[%d]: action is required", i)
		}
		if !setupActions[step.Action] {
			return fmt.Errorf("setup[%d]: unknown action %q", i, step.Action)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if _, ok := operations[step.Invoke]; !ok {
			return fmt.Errorf("flow[%d]: unknown operation %q", i, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRows, AssertProfile:
		if a.Recipe == "" {
			return fmt.Errorf("assertions[%d]: recipe is required for %s", index, a.Type)
		}
		if !a.Absent && a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect or absent is required for %s", index, a.Type)
		}
	case AssertCache:
		if a.Ingredient == "" {
			return fmt.Errorf("assertions[%d]: ingredient is required for cache", index)
		}
		if !a.Absent && a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect or absent is required for cache", index)
		}
	case AssertMeta:
		if a.Recipe == "" {
			return fmt.Errorf("assertions[%d]: recipe is required for meta", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for meta", index)
		}
	case AssertCurrent:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for current", index)
		}
	case AssertRecipes:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for recipes", index)
		}
	case AssertWrites:
		if a.Prefix == "" {
			return fmt.Errorf("assertions[%d]: prefix is required for writes", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for writes", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
