package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/minq/internal/querydoc"
)

// Backend names accepted by Scenario.Backend.
const (
	BackendMemDB  = "memdb"
	BackendSQLite = "sqlite"
)

// Scenario is a scene plus an ordered list of queries and mutations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scene is a path to a .cue file or directory, relative to the
	// scenario file when loaded with LoadScenario.
	Scene string `yaml:"scene,omitempty"`

	// SceneInline is CUE scene source embedded in the scenario.
	SceneInline string `yaml:"scene_inline,omitempty"`

	// Backend selects the scene backend; memdb when empty.
	Backend string `yaml:"backend,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is either a query or a mutation.
type Step struct {
	Query  *QueryStep  `yaml:"query,omitempty"`
	Mutate *MutateStep `yaml:"mutate,omitempty"`
}

// QueryStep is a query document plus what its result must look like.
type QueryStep struct {
	querydoc.Document `yaml:",inline"`

	// Expect is optional; without it the step only has to execute.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists result checks. Every set field must hold.
type Expect struct {
	Equals   []any            `yaml:"equals,omitempty"`
	Contains []any            `yaml:"contains,omitempty"`
	Count    *int             `yaml:"count,omitempty"`
	Empty    bool             `yaml:"empty,omitempty"`
	Groups   map[string][]any `yaml:"groups,omitempty"`

	// Error is a substring of the expected execution error. A query that
	// fails without it fails the scenario.
	Error string `yaml:"error,omitempty"`
}

// MutateStep edits the live backend. Exactly one field is set.
type MutateStep struct {
	Set    *SetAttribute `yaml:"set,omitempty"`
	Delete string        `yaml:"delete,omitempty"`
}

// SetAttribute creates or replaces one attribute value.
type SetAttribute struct {
	Node  string `yaml:"node"`
	Attr  string `yaml:"attr"`
	Value any    `yaml:"value"`
}

// LoadScenario reads and parses a scenario YAML file. A relative scene path
// is resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// a relative scene path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) && basePath != "" {
		scenario.Scene = filepath.Join(basePath, scenario.Scene)
	}
	if scenario.Scene != "" {
		if _, err := os.Stat(scenario.Scene); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: scene not found: %s", scenario.Scene)
		}
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
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

// validateScenario checks structure only; query documents are validated
// when they are built.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Scene == "") == (s.SceneInline == "") {
		return fmt.Errorf("exactly one of scene or scene_inline is required")
	}
	switch s.Backend {
	case "", BackendMemDB, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", s.Backend, BackendMemDB, BackendSQLite)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if (step.Query == nil) == (step.Mutate == nil) {
			return fmt.Errorf("steps[%d]: exactly one of query or mutate is required", i)
		}
		if step.Query != nil {
			if step.Query.Name == "" {
				return fmt.Errorf("steps[%d].query: name is required", i)
			}
			if err := validateExpect(step.Query.Expect); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
		if step.Mutate != nil {
			if err := validateMutate(step.Mutate); err != nil {
				return fmt.Errorf("steps[%d].mutate: %w", i, err)
			}
		}
	}
	return nil
}

func validateExpect(e *Expect) error {
	if e == nil {
		return nil
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	if e.Error != "" && (e.Equals != nil || e.Contains != nil || e.Count != nil || e.Empty || e.Groups != nil) {
		return fmt.Errorf("error cannot be combined with result checks")
	}
	return nil
}

func validateMutate(m *MutateStep) error {
	switch {
	case m.Set != nil && m.Delete != "":
		return fmt.Errorf("exactly one of set or delete is required")
	case m.Set != nil:
		if m.Set.Node == "" || m.Set.Attr == "" {
			return fmt.Errorf("set: node and attr are required")
		}
	case m.Delete == "":
		return fmt.Errorf("exactly one of set or delete is required")
	}
	return nil
}
