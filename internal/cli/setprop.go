package cli

import (
	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/process"
)

// SetPropOptions holds flags for the setprop command.
type SetPropOptions struct {
	*RootOptions
	Database string
	JobFile  string

	Base      string
	TreeTypes string
	NodeTypes string
	Property  string
	Type      string
	Plurality string
	Value     string
	Rule      string
	Workers   int
}

// NewSetPropCommand creates the setprop command.
func NewSetPropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetPropOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "setprop",
		Short: "Set a property across a subtree",
		Long: `Walk a subtree and set one property on every matching node. Which nodes
match is controlled by the tree-type and node-type filters; how the value
is written is controlled by the rule and the plurality.

The value literal may be a date expression such as "now", "today-7" or
an ISO date when --type date is used.

Example:
  grove setprop --db ./grove.db --base /content --property status --value live
  grove setprop --db ./grove.db --base /content --property meta/tags \
    --plurality list --rule append-if-missing --value urgent`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetProp(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.JobFile, "job", "", "CUE job file with mutation parameters")
	cmd.Flags().StringVar(&opts.Base, "base", "", "subtree to walk")
	cmd.Flags().StringVar(&opts.TreeTypes, "tree-types", process.DefaultTreeTypes, "node types whose subtrees are descended into")
	cmd.Flags().StringVar(&opts.NodeTypes, "node-types", process.DefaultNodeTypes, "node types the property is written on")
	cmd.Flags().StringVar(&opts.Property, "property", "", "property name, optionally prefixed with a sub-node path")
	cmd.Flags().StringVar(&opts.Type, "type", string(content.TypeString), "value type (string|integer|float|boolean|date)")
	cmd.Flags().StringVar(&opts.Plurality, "plurality", string(process.PluralitySingle), "single value or list (single|list)")
	cmd.Flags().StringVar(&opts.Value, "value", "", "value literal to write")
	cmd.Flags().StringVar(&opts.Rule, "rule", string(process.AlwaysSet), "write rule (set-if-missing|always-set|append-if-missing|always-append)")
	cmd.Flags().IntVar(&opts.Workers, "workers", engine.DefaultWorkers, "queue worker-pool width")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSetProp(cmd *cobra.Command, opts *SetPropOptions) error {
	def, err := setPropDefinition(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mutation parameters", err)
	}
	return launch(cmd, opts.RootOptions, opts.Database, def, opts.Workers)
}

func setPropDefinition(opts *SetPropOptions) (process.Definition, error) {
	if opts.JobFile != "" {
		def, spec, err := LoadJob(opts.JobFile)
		if err != nil {
			return nil, err
		}
		if spec.Kind != "setprop" {
			return nil, NewExitError(ExitCommandError, "job file does not describe a property mutation")
		}
		return def, nil
	}
	return &process.PropertyMutation{
		BasePath:     content.NewPath(opts.Base),
		TreeTypes:    opts.TreeTypes,
		NodeTypes:    opts.NodeTypes,
		PropertyPath: opts.Property,
		Type:         content.ValueType(opts.Type),
		Plurality:    process.Plurality(opts.Plurality),
		Literal:      opts.Value,
		Rule:         process.SetRule(opts.Rule),
	}, nil
}
