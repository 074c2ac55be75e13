package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/process"
)

// RelocateOptions holds flags for the relocate command.
type RelocateOptions struct {
	*RootOptions
	Database string
	JobFile  string

	Source      string
	Destination string
	Mode        string
	Workers     int
}

// NewRelocateCommand creates the relocate command.
func NewRelocateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelocateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "relocate",
		Short: "Move a subtree to a new location",
		Long: `Relocate a whole subtree in four staged steps: validate ACLs, build
the destination folder skeleton, move the content, remove the source.

Parameters come either from a CUE job file or from flags.

Example:
  grove relocate --db ./grove.db --source /content/a --dest /content/b
  grove relocate --db ./grove.db --job ./relocate.cue --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelocate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.JobFile, "job", "", "CUE job file with relocation parameters")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source subtree path")
	cmd.Flags().StringVar(&opts.Destination, "dest", "", "destination path")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(process.ModeRename), "destination interpretation (rename|move)")
	cmd.Flags().IntVar(&opts.Workers, "workers", engine.DefaultWorkers, "queue worker-pool width")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRelocate(cmd *cobra.Command, opts *RelocateOptions) error {
	def, err := relocateDefinition(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid relocation parameters", err)
	}
	return launch(cmd, opts.RootOptions, opts.Database, def, opts.Workers)
}

func relocateDefinition(opts *RelocateOptions) (process.Definition, error) {
	if opts.JobFile != "" {
		def, spec, err := LoadJob(opts.JobFile)
		if err != nil {
			return nil, err
		}
		if spec.Kind != "relocate" {
			return nil, NewExitError(ExitCommandError, "job file does not describe a relocation")
		}
		return def, nil
	}
	return &process.Relocation{
		Source:      content.NewPath(opts.Source),
		Destination: content.NewPath(opts.Destination),
		Mode:        process.Mode(opts.Mode),
	}, nil
}

// launch runs a definition against the database and renders its report.
// Exit codes: 0 completed cleanly, 1 aborted or permanent item failures,
// 2 configuration and command errors.
func launch(cmd *cobra.Command, rootOpts *RootOptions, dbPath string, def process.Definition, workers int) error {
	repository, err := openRepository(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repository.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	report, runErr := process.Launch(cmd.Context(), repository, def,
		engine.WithWorkers(workers))
	if report == nil {
		// nothing ran: configuration or precondition error
		return WrapExitError(ExitCommandError, "process did not start", runErr)
	}

	formatter := &OutputFormatter{
		Format:  rootOpts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: rootOpts.Verbose,
	}
	if err := formatter.Report(report); err != nil {
		return WrapExitError(ExitCommandError, "failed to render report", err)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "process aborted", runErr)
	}
	if report.TotalFailed() > 0 {
		return NewExitError(ExitFailure, "process completed with permanent item failures")
	}
	return nil
}
