package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/repo"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopBuild(ctx context.Context, s repo.Session, q *Queue) error {
	q.Submit("/", func(ctx context.Context, s repo.Session) error { return nil })
	return nil
}

func TestProcess_CompletesAllSteps(t *testing.T) {
	r := repo.NewMemory()
	p := NewProcess("happy-path", r, WithLogger(quietLogger()))
	p.DefineCriticalStep("first", noopBuild)
	p.DefineCriticalStep("second", noopBuild)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ProcessCompleted, p.State())
	assert.Equal(t, ProcessCompleted, report.State)
	require.Len(t, report.Steps, 2)
	for _, s := range report.Steps {
		assert.Equal(t, StepCompleted, s.Status)
		assert.Equal(t, 1, s.Succeeded)
	}
	assert.Equal(t, 2, report.TotalSucceeded())
	assert.Equal(t, 0, report.TotalFailed())
}

func TestProcess_CriticalAbortSkipsRemainingSteps(t *testing.T) {
	r := repo.NewMemory()
	boom := errors.New("build exploded")

	var thirdRan bool
	p := NewProcess("abort-path", r, WithLogger(quietLogger()))
	p.DefineCriticalStep("first", noopBuild)
	p.DefineCriticalStep("second", func(ctx context.Context, s repo.Session, q *Queue) error {
		return boom
	})
	p.DefineCriticalStep("third", func(ctx context.Context, s repo.Session, q *Queue) error {
		thirdRan = true
		return nil
	})

	report, err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, ProcessAborted, report.State)
	assert.False(t, thirdRan)
	assert.Equal(t, StepCompleted, report.Steps[0].Status)
	assert.Equal(t, StepAborted, report.Steps[1].Status)
	assert.Equal(t, StepSkipped, report.Steps[2].Status)
}

func TestProcess_NonCriticalFailureContinues(t *testing.T) {
	r := repo.NewMemory()

	p := NewProcess("lenient", r, WithLogger(quietLogger()))
	p.DefineStep(Step{
		Name: "optional",
		Build: func(ctx context.Context, s repo.Session, q *Queue) error {
			return errors.New("optional step failed")
		},
	})
	p.DefineCriticalStep("required", noopBuild)

	report, err := p.Run(context.Background())
	require.NoError(t, err, "non-critical failure must not abort the process")

	assert.Equal(t, ProcessCompleted, report.State)
	assert.Equal(t, StepAborted, report.Steps[0].Status)
	assert.Equal(t, StepCompleted, report.Steps[1].Status)
}

func TestProcess_FailuresAbortPromotesItemFailures(t *testing.T) {
	r := repo.NewMemory()

	var mutated bool
	p := NewProcess("gated", r, WithLogger(quietLogger()))
	p.DefineStep(Step{
		Name:          "validate",
		Critical:      true,
		FailuresAbort: true,
		Build: func(ctx context.Context, s repo.Session, q *Queue) error {
			q.Submit("/content/denied", func(ctx context.Context, s repo.Session) error {
				return NewACLDeniedError("/content/denied")
			})
			q.Submit("/content/ok", func(ctx context.Context, s repo.Session) error {
				return nil
			})
			return nil
		},
	})
	p.DefineCriticalStep("mutate", func(ctx context.Context, s repo.Session, q *Queue) error {
		mutated = true
		return nil
	})

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsPreconditionError(err))

	assert.Equal(t, ProcessAborted, report.State)
	assert.False(t, mutated, "mutating step must never run after failed validation")
	assert.Equal(t, StepAborted, report.Steps[0].Status)
	assert.Equal(t, StepSkipped, report.Steps[1].Status)
	assert.Len(t, report.Steps[0].Failures, 1)
}

func TestProcess_CompensationRunsOnCriticalAbort(t *testing.T) {
	r := repo.NewMemory()
	r.MustSeed("/content", content.KindFolder, nil)

	var compensated bool
	p := NewProcess("undo", r, WithLogger(quietLogger()))
	p.DefineStep(Step{
		Name:     "partial",
		Critical: true,
		Build: func(ctx context.Context, s repo.Session, q *Queue) error {
			if err := s.CreateChild(ctx, "/content", "tmp", content.KindFolder, nil); err != nil {
				return err
			}
			return errors.New("then failed")
		},
		Compensate: func(ctx context.Context, s repo.Session) error {
			compensated = true
			return s.DeleteSubtree(ctx, "/content/tmp")
		},
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, compensated)
	assert.NotContains(t, r.Snapshot(), content.Path("/content/tmp"))
}

func TestProcess_CompensationErrorIsSwallowed(t *testing.T) {
	r := repo.NewMemory()
	boom := errors.New("step failed")

	p := NewProcess("undo-fails", r, WithLogger(quietLogger()))
	p.DefineStep(Step{
		Name:     "broken",
		Critical: true,
		Build: func(ctx context.Context, s repo.Session, q *Queue) error {
			return boom
		},
		Compensate: func(ctx context.Context, s repo.Session) error {
			return errors.New("compensation also failed")
		},
	})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom, "abort cause must be the step error, not the compensation error")
}

func TestProcess_RunIsOneShot(t *testing.T) {
	r := repo.NewMemory()
	p := NewProcess("once", r, WithLogger(quietLogger()))
	p.DefineCriticalStep("only", noopBuild)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.Error(t, err)
}

func TestProcess_TokenGeneratorOverride(t *testing.T) {
	r := repo.NewMemory()
	p := NewProcess("tokened", r,
		WithLogger(quietLogger()),
		WithTokenGenerator(NewFixedGenerator("tok-0001")))

	assert.Equal(t, "tok-0001", p.Token())

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-0001", report.Token)
}
