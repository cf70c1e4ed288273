package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qtree/internal/config"
	"github.com/roach88/qtree/internal/notation"
)

// Scenario is a set of expressions built into one tree and the assertions
// the tree must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Keys is the number of entry points.
	Keys int `yaml:"keys"`

	// Options override the default engine settings.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Exprs are built in order.
	Exprs []ExprStep `yaml:"exprs"`

	// Assertions validate the finished tree.
	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioOptions mirrors the engine flags. Absent fields keep defaults.
type ScenarioOptions struct {
	Paranoid *bool `yaml:"paranoid,omitempty"`
	Pure     *bool `yaml:"pure,omitempty"`
	Rewrite  *bool `yaml:"rewrite,omitempty"`
	Cascade  *bool `yaml:"cascade,omitempty"`
	MaxNodes int   `yaml:"maxnode,omitempty"`
	MaxDepth int   `yaml:"maxdepth,omitempty"`
}

// apply overlays the scenario's settings on o.
func (s ScenarioOptions) apply(o config.Options) config.Options {
	if s.Paranoid != nil {
		o.Paranoid = *s.Paranoid
	}
	if s.Pure != nil {
		o.Pure = *s.Pure
	}
	if s.Rewrite != nil {
		o.Rewrite = *s.Rewrite
	}
	if s.Cascade != nil {
		o.Cascade = *s.Cascade
	}
	if s.MaxNodes != 0 {
		o.MaxNodes = s.MaxNodes
	}
	if s.MaxDepth != 0 {
		o.MaxDepth = s.MaxDepth
	}
	return o
}

// ExprStep builds one expression and names its result.
type ExprStep struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// Assertion validates the finished tree.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name is the expression checked by canonical and constant.
	Name string `yaml:"name,omitempty"`

	// Names are the expressions compared by same_group, distinct and
	// equivalent.
	Names []string `yaml:"names,omitempty"`

	// Want is the expected notation (canonical).
	Want string `yaml:"want,omitempty"`

	// Value is the expected constant.
	Value bool `yaml:"value,omitempty"`

	// Count bounds the live groups (max_groups).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSameGroup  = "same_group"
	AssertDistinct   = "distinct"
	AssertEquivalent = "equivalent"
	AssertCanonical  = "canonical"
	AssertConstant   = "constant"
	AssertMaxGroups  = "max_groups"
)

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

// ParseScenario parses scenario YAML with strict field validation.
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Keys < 1 {
		return fmt.Errorf("keys must be positive")
	}
	if len(s.Exprs) == 0 {
		return fmt.Errorf("exprs list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool)
	for i, step := range s.Exprs {
		if step.Name == "" {
			return fmt.Errorf("exprs[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("exprs[%d]: duplicate name %q", i, step.Name)
		}
		names[step.Name] = true
		if _, err := notation.Parse(step.Expr); err != nil {
			return fmt.Errorf("exprs[%d] %s: %w", i, step.Name, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, names map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	var refs []string
	switch a.Type {
	case AssertSameGroup, AssertDistinct, AssertEquivalent:
		if len(a.Names) < 2 {
			return fmt.Errorf("assertions[%d]: %s needs at least two names", index, a.Type)
		}
		refs = a.Names
	case AssertCanonical:
		if a.Name == "" || a.Want == "" {
			return fmt.Errorf("assertions[%d]: canonical needs name and want", index)
		}
		refs = []string{a.Name}
	case AssertConstant:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: constant needs name", index)
		}
		refs = []string{a.Name}
	case AssertMaxGroups:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for max_groups", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, n := range refs {
		if !names[n] {
			return fmt.Errorf("assertions[%d]: unknown expression %q", index, n)
		}
	}
	return nil
}
