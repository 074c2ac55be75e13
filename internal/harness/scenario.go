package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/process"
)

// Scenario is one declarative integration case: an initial tree, an ACL
// layout, a job to launch, and expectations on the outcome.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Tree lists the initial nodes, parents before children.
	Tree []TreeNode `yaml:"tree"`

	// ACL lists privilege grants and denials applied before the run.
	ACL []ACLEntry `yaml:"acl,omitempty"`

	// Options configures repository quirks and the worker pool.
	Options Options `yaml:"options,omitempty"`

	// Job selects and parameterizes the process to launch.
	Job Job `yaml:"job"`

	// Token is the fixed instance token; defaults to "test-token-0001"
	// so golden comparison stays deterministic.
	Token string `yaml:"token,omitempty"`

	// Expect validates the report and the final tree.
	Expect Expectation `yaml:"expect"`
}

// TreeNode seeds one node of the initial tree.
type TreeNode struct {
	Path       string                     `yaml:"path"`
	Kind       string                     `yaml:"kind"`
	Properties map[string]PropertyLiteral `yaml:"properties,omitempty"`
}

// PropertyLiteral is a typed literal in scenario YAML. Type defaults to
// string; List makes the value a homogeneous list of that type.
type PropertyLiteral struct {
	Type  string   `yaml:"type,omitempty"`
	Value string   `yaml:"value,omitempty"`
	List  []string `yaml:"list,omitempty"`
}

// ACLEntry grants or denies named privileges at a path.
type ACLEntry struct {
	Path  string   `yaml:"path"`
	Grant []string `yaml:"grant,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`
}

// Options configures the in-memory repository for the run.
type Options struct {
	// ContentStubs enables the backend quirk where moving a reserved
	// metadata node materializes a stub at the destination.
	ContentStubs bool `yaml:"content_stubs,omitempty"`

	// Workers overrides the queue worker-pool width.
	Workers int `yaml:"workers,omitempty"`
}

// Job parameterizes the process under test. Kind selects which fields
// apply: "relocate" uses source/destination/mode, "setprop" the rest.
type Job struct {
	Kind string `yaml:"kind"`

	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination,omitempty"`
	Mode        string `yaml:"mode,omitempty"`

	Base         string `yaml:"base,omitempty"`
	TreeTypes    string `yaml:"tree_types,omitempty"`
	NodeTypes    string `yaml:"node_types,omitempty"`
	Property     string `yaml:"property,omitempty"`
	Type         string `yaml:"type,omitempty"`
	Plurality    string `yaml:"plurality,omitempty"`
	Value        string `yaml:"value,omitempty"`
	Rule         string `yaml:"rule,omitempty"`

	// Runs repeats the launch, for idempotence scenarios. Defaults to 1;
	// each run gets a distinct token suffix.
	Runs int `yaml:"runs,omitempty"`
}

// Job kinds.
const (
	JobRelocate = "relocate"
	JobSetProp  = "setprop"
)

// Expectation validates the final report and tree state.
type Expectation struct {
	// State is the expected terminal process state ("completed",
	// "aborted"); empty skips the check.
	State string `yaml:"state,omitempty"`

	// Error is a substring the launch error must contain; empty means
	// the launch must not error.
	Error string `yaml:"error,omitempty"`

	Steps      []StepExpectation     `yaml:"steps,omitempty"`
	Exists     []string              `yaml:"exists,omitempty"`
	Absent     []string              `yaml:"absent,omitempty"`
	Properties []PropertyExpectation `yaml:"properties,omitempty"`
}

// StepExpectation validates one step of the final report by name.
type StepExpectation struct {
	Name   string `yaml:"name"`
	Status string `yaml:"status"`
	Failed int    `yaml:"failed,omitempty"`
}

// PropertyExpectation validates one property on the final tree.
type PropertyExpectation struct {
	Path   string   `yaml:"path"`
	Key    string   `yaml:"key"`
	Type   string   `yaml:"type,omitempty"`
	Value  string   `yaml:"value,omitempty"`
	List   []string `yaml:"list,omitempty"`
	Absent bool     `yaml:"absent,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Tree) == 0 {
		return fmt.Errorf("tree list is required and must be non-empty")
	}
	for i, n := range s.Tree {
		if n.Path == "" {
			return fmt.Errorf("tree[%d]: path is required", i)
		}
		if n.Kind == "" {
			return fmt.Errorf("tree[%d]: kind is required", i)
		}
		for key, lit := range n.Properties {
			if err := validateLiteral(lit); err != nil {
				return fmt.Errorf("tree[%d] property %q: %w", i, key, err)
			}
		}
	}
	for i, e := range s.ACL {
		if e.Path == "" {
			return fmt.Errorf("acl[%d]: path is required", i)
		}
		if len(e.Grant) == 0 && len(e.Deny) == 0 {
			return fmt.Errorf("acl[%d]: grant or deny is required", i)
		}
	}

	switch s.Job.Kind {
	case JobRelocate:
		if s.Job.Source == "" || s.Job.Destination == "" {
			return fmt.Errorf("relocate job: source and destination are required")
		}
	case JobSetProp:
		if s.Job.Base == "" || s.Job.Property == "" {
			return fmt.Errorf("setprop job: base and property are required")
		}
	case "":
		return fmt.Errorf("job kind is required")
	default:
		return fmt.Errorf("unknown job kind %q: must be %q or %q", s.Job.Kind, JobRelocate, JobSetProp)
	}
	if s.Job.Runs < 0 {
		return fmt.Errorf("job runs must be non-negative")
	}

	for i, p := range s.Expect.Properties {
		if p.Path == "" || p.Key == "" {
			return fmt.Errorf("expect.properties[%d]: path and key are required", i)
		}
		if p.Absent && (p.Value != "" || len(p.List) > 0) {
			return fmt.Errorf("expect.properties[%d]: absent excludes value/list", i)
		}
	}
	for i, st := range s.Expect.Steps {
		if st.Name == "" || st.Status == "" {
			return fmt.Errorf("expect.steps[%d]: name and status are required", i)
		}
	}
	return nil
}

func validateLiteral(lit PropertyLiteral) error {
	if lit.Value != "" && len(lit.List) > 0 {
		return fmt.Errorf("value and list are mutually exclusive")
	}
	if lit.Type != "" {
		if _, err := content.ParseValueType(lit.Type); err != nil {
			return err
		}
	}
	return nil
}

// parseLiteral converts a scenario literal into a typed property value.
func parseLiteral(lit PropertyLiteral) (content.Value, error) {
	vt := content.TypeString
	if lit.Type != "" {
		parsed, err := content.ParseValueType(lit.Type)
		if err != nil {
			return nil, err
		}
		vt = parsed
	}
	if lit.List == nil {
		return vt.Parse(lit.Value)
	}
	list := make(content.ListValue, 0, len(lit.List))
	for _, elem := range lit.List {
		v, err := vt.Parse(elem)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

// definition builds the process definition the job describes.
func (j Job) definition() (process.Definition, error) {
	switch j.Kind {
	case JobRelocate:
		return &process.Relocation{
			Source:      content.NewPath(j.Source),
			Destination: content.NewPath(j.Destination),
			Mode:        process.Mode(j.Mode),
		}, nil
	case JobSetProp:
		return &process.PropertyMutation{
			BasePath:     content.NewPath(j.Base),
			TreeTypes:    j.TreeTypes,
			NodeTypes:    j.NodeTypes,
			PropertyPath: j.Property,
			Type:         content.ValueType(j.Type),
			Plurality:    process.Plurality(j.Plurality),
			Literal:      j.Value,
			Rule:         process.SetRule(j.Rule),
		}, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", j.Kind)
	}
}
