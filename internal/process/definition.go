package process

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/repo"
)

// Definition is a runnable process description.
//
// Init validates the parameter combination and fails with a CONFIG_INVALID
// error before anything touches the repository. BuildProcess performs the
// synchronous precondition checks and registers the ordered steps; its
// error terminates the launch before any step runs.
type Definition interface {
	Name() string
	Init() error
	BuildProcess(ctx context.Context, p *engine.Process, s repo.Session) error
}

// Launch drives a definition end to end: Init, BuildProcess, Run, then
// report persistence.
//
// The returned report is nil when the launch failed before the first step
// (configuration or precondition error). Once steps run, the report is
// always returned, aborted or not, and the error is the abort cause.
// Report persistence is best effort; its failure is logged, never returned.
func Launch(ctx context.Context, repository repo.Repository, def Definition, opts ...engine.ProcessOption) (*engine.Report, error) {
	if err := def.Init(); err != nil {
		return nil, err
	}

	p := engine.NewProcess(def.Name(), repository, opts...)

	s, err := repository.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	buildErr := def.BuildProcess(ctx, p, s)
	s.Close()
	if buildErr != nil {
		return nil, buildErr
	}

	report, runErr := p.Run(ctx)
	if report != nil {
		persistReport(ctx, repository, report)
	}
	return report, runErr
}

func persistReport(ctx context.Context, repository repo.Repository, report *engine.Report) {
	s, err := repository.NewSession(ctx)
	if err != nil {
		slog.Error("report persistence failed", "token", report.Token, "error", err)
		return
	}
	defer s.Close()
	if err := StoreReport(ctx, s, report); err != nil {
		slog.Error("report persistence failed", "token", report.Token, "error", err)
	}
}
