package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a view scenario: facts saved over a sequence of steps,
// with expectations about the projected value.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files holding view declarations.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// View selects the view by name. It may be omitted when the specs
	// declare exactly one view.
	View string `yaml:"view,omitempty"`

	// Root is the alias of the fact the view is started on.
	Root string `yaml:"root"`

	// Facts are saved before the view is started.
	Facts []FactDef `yaml:"facts,omitempty"`

	// Steps run in order after the view is started.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions are checked against the final value.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FactDef declares a fact. Predecessors map roles to aliases.
type FactDef struct {
	Alias        string              `yaml:"alias"`
	Type         string              `yaml:"type"`
	Fields       map[string]any      `yaml:"fields,omitempty"`
	Predecessors map[string][]string `yaml:"predecessors,omitempty"`
}

// Step is one action of a scenario. Exactly one of Save, Start or Stop is
// set.
type Step struct {
	// Save lists facts saved together in one call.
	Save []FactDef `yaml:"save,omitempty"`

	// Start restarts the view on the fact with this alias.
	Start string `yaml:"start,omitempty"`

	// Stop stops the view.
	Stop bool `yaml:"stop,omitempty"`

	// Expect is checked right after the step.
	Expect []Assertion `yaml:"expect,omitempty"`
}

// Assertion checks the projected value.
type Assertion struct {
	// Type is one of equals, count, order, absent.
	Type string `yaml:"type"`

	// Path selects the value under test.
	Path string `yaml:"path"`

	// Value is the expected value (equals).
	Value any `yaml:"value,omitempty"`

	// Count is the expected list length (count).
	Count int `yaml:"count,omitempty"`

	// Field names the entry field compared by order.
	Field string `yaml:"field,omitempty"`

	// Values are the expected field values, in order (order).
	Values []any `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertEquals = "equals"
	AssertCount  = "count"
	AssertOrder  = "order"
	AssertAbsent = "absent"
)

// LoadScenario reads and parses a scenario YAML file, resolving spec paths
// relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}
	for _, specPath := range scenario.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", specPath)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Spec paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// alias is declared before use.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if s.Root == "" {
		return fmt.Errorf("root is required")
	}

	declared := make(map[string]bool)
	if err := validateFacts("facts", s.Facts, declared); err != nil {
		return err
	}
	if !declared[s.Root] {
		return fmt.Errorf("root: unknown alias %q", s.Root)
	}

	for i, step := range s.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		actions := 0
		if len(step.Save) > 0 {
			actions++
		}
		if step.Start != "" {
			actions++
		}
		if step.Stop {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("%s: exactly one of save, start or stop is required", where)
		}
		if err := validateFacts(where+".save", step.Save, declared); err != nil {
			return err
		}
		if step.Start != "" && !declared[step.Start] {
			return fmt.Errorf("%s.start: unknown alias %q", where, step.Start)
		}
		for j, a := range step.Expect {
			if err := validateAssertion(fmt.Sprintf("%s.expect[%d]", where, j), &a); err != nil {
				return err
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(fmt.Sprintf("assertions[%d]", i), &a); err != nil {
			return err
		}
	}
	return nil
}

func validateFacts(where string, facts []FactDef, declared map[string]bool) error {
	for i, f := range facts {
		at := fmt.Sprintf("%s[%d]", where, i)
		if f.Alias == "" {
			return fmt.Errorf("%s: alias is required", at)
		}
		if declared[f.Alias] {
			return fmt.Errorf("%s: alias %q declared twice", at, f.Alias)
		}
		if f.Type == "" {
			return fmt.Errorf("%s: type is required", at)
		}
		for role, aliases := range f.Predecessors {
			for _, alias := range aliases {
				if !declared[alias] {
					return fmt.Errorf("%s.predecessors.%s: unknown alias %q", at, role, alias)
				}
			}
		}
		declared[f.Alias] = true
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(where string, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("%s: type is required", where)
	}
	if _, err := parsePath(a.Path); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}

	switch a.Type {
	case AssertEquals, AssertAbsent:
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative", where)
		}
	case AssertOrder:
		if a.Field == "" {
			return fmt.Errorf("%s: field is required for order", where)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}
	return nil
}
