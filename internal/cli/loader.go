package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/process"
)

// jobSchema constrains job files structurally before decoding. Semantic
// validation (path relations, rule/plurality combinations) stays with the
// process definitions' Init.
const jobSchema = `
job: {
	kind: "relocate" | "setprop"

	if kind == "relocate" {
		source:      string & !=""
		destination: string & !=""
		mode:        *"rename" | "move"
	}

	if kind == "setprop" {
		base:      string & !=""
		property:  string & !=""
		treeTypes: string | *""
		nodeTypes: string | *""
		type:      *"string" | "integer" | "float" | "boolean" | "date"
		plurality: *"single" | "list"
		value:     string | *""
		rule:      *"always-set" | "set-if-missing" | "append-if-missing" | "always-append"
	}
}
`

// JobSpec is the decoded job file.
type JobSpec struct {
	Kind string `json:"kind"`

	Source      string `json:"source"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`

	Base      string `json:"base"`
	Property  string `json:"property"`
	TreeTypes string `json:"treeTypes"`
	NodeTypes string `json:"nodeTypes"`
	Type      string `json:"type"`
	Plurality string `json:"plurality"`
	Value     string `json:"value"`
	Rule      string `json:"rule"`
}

// LoadError represents an error that occurred during job-file loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants for job loading.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeNotFound    = "E005" // file not found
	ErrCodeBuildFailed = "E006" // CUE compile/unify failed
	ErrCodeBadJob      = "E201" // job value missing or malformed
)

// LoadJob reads a CUE job file, validates it against the job schema, and
// builds the process definition it describes.
func LoadJob(path string) (process.Definition, *JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("job file not found: %s", path)}
		}
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading job file: %v", err)}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(jobSchema)
	if err := schema.Err(); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("compiling job schema: %v", err)}
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("compiling job file: %v", err), Pos: value.Pos()}
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBadJob, Message: fmt.Sprintf("job file does not match schema: %v", err)}
	}

	jobVal := unified.LookupPath(cue.ParsePath("job"))
	if !jobVal.Exists() {
		return nil, nil, &LoadError{Code: ErrCodeBadJob, Message: "job file has no top-level job value"}
	}

	var spec JobSpec
	if err := jobVal.Decode(&spec); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBadJob, Message: fmt.Sprintf("decoding job: %v", err), Pos: jobVal.Pos()}
	}

	def, err := spec.definition()
	if err != nil {
		return nil, nil, err
	}
	return def, &spec, nil
}

// definition builds the process definition the spec describes.
func (j *JobSpec) definition() (process.Definition, error) {
	switch j.Kind {
	case "relocate":
		return &process.Relocation{
			Source:      content.NewPath(j.Source),
			Destination: content.NewPath(j.Destination),
			Mode:        process.Mode(j.Mode),
		}, nil
	case "setprop":
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
		return nil, &LoadError{Code: ErrCodeBadJob, Message: fmt.Sprintf("unknown job kind %q", j.Kind)}
	}
}
