package cli

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/process"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report [token]",
		Short: "Inspect stored process reports",
		Long: `Without a token, lists all stored process reports. With a token, prints
that report in full.

Example:
  grove report --db ./grove.db
  grove report --db ./grove.db 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions, args []string) error {
	repository, err := openRepository(opts.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repository.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	session, err := repository.NewSession(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open session", err)
	}
	defer session.Close()

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	if len(args) == 1 {
		report, err := process.LoadReport(cmd.Context(), session, args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load report", err)
		}
		return formatter.Report(report)
	}

	summaries, err := process.ListReports(cmd.Context(), session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list reports", err)
	}
	return renderSummaries(formatter, summaries)
}

// SummaryData is the JSON projection of one stored report summary.
type SummaryData struct {
	Token   string `json:"token"`
	Process string `json:"process"`
	State   string `json:"state"`
	Started string `json:"started"`
}

func renderSummaries(f *OutputFormatter, summaries []process.Summary) error {
	if f.Format == "json" {
		data := make([]SummaryData, 0, len(summaries))
		for _, s := range summaries {
			data = append(data, SummaryData{
				Token:   s.Token,
				Process: s.Process,
				State:   string(s.State),
				Started: s.Started.Format("2006-01-02 15:04:05"),
			})
		}
		return f.Success(data)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(f.Writer, "no reports stored")
		return nil
	}
	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tPROCESS\tSTATE\tSTARTED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.Token, s.Process, s.State, s.Started.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
