package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/builtingen/internal/ir"
)

// Scenario defines a consumer scenario.
// Scenarios compile specs, emit the include text and run it through a
// simulated C consumer, then assert on what the consumer saw.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files or directories to compile, unified in order.
	// Paths are relative to the scenario's base path.
	Specs []string `yaml:"specs"`

	// Macros overrides emitted macro names. Unset names keep their defaults.
	Macros ir.MacroNames `yaml:"macros,omitempty"`

	// Consumer describes the including translation unit.
	Consumer Consumer `yaml:"consumer"`

	// Assertions validate the emitted text and the consumer's expansions.
	Assertions []Assertion `yaml:"assertions"`
}

// Consumer is the set of macros defined before the include.
type Consumer struct {
	// Define lists the sink macros the consumer provides, e.g. [BUILTIN].
	Define []string `yaml:"define"`
}

// Assertion validates one property of a scenario run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "expansion_contains": a sink invocation of Macro for Name (and Args) exists
	// - "expansion_order": builtins Names reach the consumer in this order
	// - "expansion_count": Macro (or any sink, if empty) is invoked Count times
	// - "output_contains": the emitted text contains Text
	// - "category_count": the snapshot has Count builtins of Category
	// - "no_leaked_macros": nothing is left defined after the include
	// - "emit_error": emission fails because Name lacks Field
	Type string `yaml:"type"`

	// Macro is the sink macro name (expansion_contains, expansion_count).
	Macro string `yaml:"macro,omitempty"`

	// Name is a builtin name (expansion_contains, emit_error).
	Name string `yaml:"name,omitempty"`

	// Args are the exact expected arguments, quotes included (expansion_contains).
	Args []string `yaml:"args,omitempty"`

	// Names is the expected builtin order (expansion_order).
	// Other builtins may appear in between.
	Names []string `yaml:"names,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty"`

	// Text is the expected substring (output_contains).
	Text string `yaml:"text,omitempty"`

	// Category is a category name such as "library" (category_count).
	Category string `yaml:"category,omitempty"`

	// Field is the missing field name (emit_error).
	Field string `yaml:"field,omitempty"`
}

// Assertion type constants.
const (
	AssertExpansionContains = "expansion_contains"
	AssertExpansionOrder    = "expansion_order"
	AssertExpansionCount    = "expansion_count"
	AssertOutputContains    = "output_contains"
	AssertCategoryCount     = "category_count"
	AssertNoLeakedMacros    = "no_leaked_macros"
	AssertEmitError         = "emit_error"
)

// ExpectsEmitError reports whether the scenario expects emission to fail.
func (s *Scenario) ExpectsEmitError() bool {
	for _, a := range s.Assertions {
		if a.Type == AssertEmitError {
			return true
		}
	}
	return false
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Spec paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos)
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
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

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if len(s.Consumer.Define) == 0 && !s.ExpectsEmitError() {
		return fmt.Errorf("consumer.define is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec path not found: %s", specPath)
		}
	}

	if err := s.Macros.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("macros: %w", err)
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
	case AssertExpansionContains:
		if a.Macro == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: macro and name are required for expansion_contains", index)
		}
	case AssertExpansionOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for expansion_order", index)
		}
	case AssertExpansionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for expansion_count", index)
		}
	case AssertOutputContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for output_contains", index)
		}
	case AssertCategoryCount:
		if _, err := ir.ParseCategory(a.Category); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for category_count", index)
		}
	case AssertNoLeakedMacros:
	case AssertEmitError:
		if a.Name == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: name and field are required for emit_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
