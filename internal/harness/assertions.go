package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/repo"
)

// evaluate checks every expectation and returns one message per failure.
func evaluate(ctx context.Context, r *repo.MemoryRepository, expect Expectation, result *Result) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if expect.Error != "" {
		if result.RunErr == nil {
			fail("expected launch error containing %q, got none", expect.Error)
		} else if !strings.Contains(result.RunErr.Error(), expect.Error) {
			fail("expected launch error containing %q, got %q", expect.Error, result.RunErr)
		}
	} else if result.RunErr != nil {
		fail("unexpected launch error: %v", result.RunErr)
	}

	if expect.State != "" {
		if result.Report == nil {
			fail("expected process state %q, but no report was produced", expect.State)
		} else if string(result.Report.State) != expect.State {
			fail("expected process state %q, got %q", expect.State, result.Report.State)
		}
	}

	for _, se := range expect.Steps {
		evaluateStep(se, result, fail)
	}

	s, err := r.NewSession(ctx)
	if err != nil {
		fail("acquire session: %v", err)
		return errs
	}
	defer s.Close()

	for _, raw := range expect.Exists {
		path := content.NewPath(raw)
		ok, err := s.Exists(ctx, path)
		if err != nil {
			fail("exists %s: %v", path, err)
		} else if !ok {
			fail("expected %s to exist", path)
		}
	}
	for _, raw := range expect.Absent {
		path := content.NewPath(raw)
		ok, err := s.Exists(ctx, path)
		if err != nil {
			fail("absent %s: %v", path, err)
		} else if ok {
			fail("expected %s to be absent", path)
		}
	}

	for _, pe := range expect.Properties {
		evaluateProperty(ctx, s, pe, fail)
	}
	return errs
}

func evaluateStep(se StepExpectation, result *Result, fail func(string, ...any)) {
	if result.Report == nil {
		fail("step %q: no report was produced", se.Name)
		return
	}
	var step *engine.StepReport
	for i := range result.Report.Steps {
		if result.Report.Steps[i].Name == se.Name {
			step = &result.Report.Steps[i]
			break
		}
	}
	if step == nil {
		fail("step %q: not present in report", se.Name)
		return
	}
	if string(step.Status) != se.Status {
		fail("step %q: expected status %q, got %q", se.Name, se.Status, step.Status)
	}
	if se.Failed != len(step.Failures) {
		fail("step %q: expected %d failure(s), got %d", se.Name, se.Failed, len(step.Failures))
	}
}

func evaluateProperty(ctx context.Context, s repo.Session, pe PropertyExpectation, fail func(string, ...any)) {
	path := content.NewPath(pe.Path)
	props, err := s.Properties(ctx, path)
	if err != nil {
		fail("property %s@%s: %v", pe.Key, path, err)
		return
	}
	actual, ok := props.Get(pe.Key)

	if pe.Absent {
		if ok {
			fail("property %s@%s: expected absent, got %s", pe.Key, path, content.Format(actual))
		}
		return
	}
	if !ok {
		fail("property %s@%s: expected present, got absent", pe.Key, path)
		return
	}

	want, err := parseLiteral(PropertyLiteral{Type: pe.Type, Value: pe.Value, List: pe.List})
	if err != nil {
		fail("property %s@%s: bad expectation: %v", pe.Key, path, err)
		return
	}
	if !content.Equal(actual, want) {
		fail("property %s@%s: expected %s, got %s",
			pe.Key, path, content.Format(want), content.Format(actual))
	}
}
