package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grovekit/grove/internal/repo"
)

// StepStatus tracks one step's lifecycle.
type StepStatus string

const (
	StepNotStarted StepStatus = "not-started"
	StepRunning    StepStatus = "running"
	StepCompleted  StepStatus = "completed"
	StepAborted    StepStatus = "aborted"
	StepSkipped    StepStatus = "skipped"
)

// ProcessState tracks the whole process.
type ProcessState string

const (
	ProcessPending   ProcessState = "pending"
	ProcessRunning   ProcessState = "running"
	ProcessCompleted ProcessState = "completed"
	ProcessAborted   ProcessState = "aborted"
)

// BuildFunc populates a step's queue. It runs synchronously - typically a
// traversal that submits one deferred action per visited node - and its
// error is an unrecoverable step error, as opposed to the item failures
// collected while the queue drains.
type BuildFunc func(ctx context.Context, s repo.Session, q *Queue) error

// CompensateFunc undoes a step's partial effects after an abort. Invoked
// best-effort with a fresh session; its error is logged, never propagated.
type CompensateFunc func(ctx context.Context, s repo.Session) error

// Step is one named stage of a process.
type Step struct {
	Name     string
	Critical bool

	// FailuresAbort promotes item failures to an unrecoverable step
	// error once the queue has drained. Used by validation steps that
	// gate later mutating steps.
	FailuresAbort bool

	Build      BuildFunc
	Compensate CompensateFunc
}

// Process is an ordered sequence of steps plus their aggregated outcome.
//
// A process is created once per invocation, mutated only by step
// execution, and never reused across independent runs. It exclusively
// owns its step results and failure records.
type Process struct {
	name       string
	token      string
	repository repo.Repository
	workers    int
	logger     *slog.Logger

	steps   []Step
	state   ProcessState
	results []StepReport
	cause   error
}

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithWorkers sets the queue worker-pool width for every step.
func WithWorkers(n int) ProcessOption {
	return func(p *Process) { p.workers = n }
}

// WithTokenGenerator overrides the instance token generator (for tests).
func WithTokenGenerator(g TokenGenerator) ProcessOption {
	return func(p *Process) { p.token = g.Generate() }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) ProcessOption {
	return func(p *Process) { p.logger = l }
}

// NewProcess creates a pending process against the given repository.
func NewProcess(name string, repository repo.Repository, opts ...ProcessOption) *Process {
	p := &Process{
		name:       name,
		token:      UUIDv7Generator{}.Generate(),
		repository: repository,
		workers:    DefaultWorkers,
		logger:     slog.Default(),
		state:      ProcessPending,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// Token returns the unique instance token.
func (p *Process) Token() string { return p.token }

// State returns the current process state.
func (p *Process) State() ProcessState { return p.state }

// DefineStep appends a step. Steps run in definition order.
func (p *Process) DefineStep(s Step) {
	p.steps = append(p.steps, s)
}

// DefineCriticalStep appends a critical step with no compensation.
func (p *Process) DefineCriticalStep(name string, build BuildFunc) {
	p.DefineStep(Step{Name: name, Critical: true, Build: build})
}

// Run executes the steps in order and returns the aggregated report.
//
// The returned error is the abort cause when the process aborted, nil
// when it completed - individual item failures do not constitute an
// error here; they live in the report.
func (p *Process) Run(ctx context.Context) (*Report, error) {
	if p.state != ProcessPending {
		return nil, fmt.Errorf("process %q already ran (state=%s)", p.name, p.state)
	}
	p.state = ProcessRunning
	started := time.Now()

	p.results = make([]StepReport, len(p.steps))
	for i, s := range p.steps {
		p.results[i] = StepReport{Name: s.Name, Status: StepNotStarted}
	}

	for i := range p.steps {
		if p.state == ProcessAborted {
			p.results[i].Status = StepSkipped
			continue
		}
		p.runStep(ctx, i)
	}

	if p.state != ProcessAborted {
		p.state = ProcessCompleted
	}

	return &Report{
		Process:  p.name,
		Token:    p.token,
		State:    p.state,
		Steps:    p.results,
		Started:  started,
		Finished: time.Now(),
	}, p.cause
}

func (p *Process) runStep(ctx context.Context, i int) {
	step := p.steps[i]
	result := &p.results[i]
	result.Status = StepRunning
	p.logger.Info("step starting", "process", p.name, "token", p.token, "step", step.Name)

	queue := NewQueue(p.repository, p.workers)

	s, err := p.repository.NewSession(ctx)
	if err != nil {
		p.failStep(ctx, i, fmt.Errorf("acquire session: %w", err))
		return
	}
	buildErr := step.Build(ctx, s, queue)
	s.Close()

	if buildErr != nil {
		p.failStep(ctx, i, buildErr)
		return
	}

	outcome := queue.RunAll(ctx)
	result.Succeeded = outcome.Succeeded
	result.Failures = outcome.Failures

	if step.FailuresAbort && len(outcome.Failures) > 0 {
		first := outcome.Failures[0]
		p.failStep(ctx, i, &ProcessError{
			Code:    ErrCodePreconditionFailed,
			Step:    step.Name,
			Path:    first.Target,
			Message: fmt.Sprintf("%d item(s) failed validation", len(outcome.Failures)),
			Err:     first.Err,
		})
		return
	}

	result.Status = StepCompleted
	p.logger.Info("step completed",
		"process", p.name, "step", step.Name,
		"succeeded", outcome.Succeeded, "failed", len(outcome.Failures))
}

// failStep records an unrecoverable step error. Critical steps abort the
// process and trigger the step's compensation; non-critical steps record
// the error and let the process continue.
func (p *Process) failStep(ctx context.Context, i int, err error) {
	step := p.steps[i]
	result := &p.results[i]
	result.Status = StepAborted
	result.Err = err
	p.logger.Error("step failed", "process", p.name, "step", step.Name, "error", err)

	if !step.Critical {
		return
	}

	p.state = ProcessAborted
	p.cause = err
	p.compensate(ctx, step)
}

func (p *Process) compensate(ctx context.Context, step Step) {
	if step.Compensate == nil {
		return
	}
	s, err := p.repository.NewSession(ctx)
	if err != nil {
		p.logger.Error("compensation session failed", "step", step.Name, "error", err)
		return
	}
	defer s.Close()
	if err := step.Compensate(ctx, s); err != nil {
		p.logger.Error("compensation failed", "step", step.Name, "error", err)
	}
}
