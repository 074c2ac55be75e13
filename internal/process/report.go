package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/repo"
)

// ReportRoot is where finished process reports live in the repository:
// one node per instance token, one child per step, one grandchild per
// permanent failure.
const ReportRoot = "/var/grove/processes"

// Summary is one row of a report listing.
type Summary struct {
	Token   string
	Process string
	State   engine.ProcessState
	Started time.Time
}

// StoreReport persists a finished report under ReportRoot/<token>.
func StoreReport(ctx context.Context, s repo.Session, r *engine.Report) error {
	root := content.NewPath(ReportRoot)
	if err := ensurePath(ctx, s, root); err != nil {
		return err
	}

	base := root.Join(r.Token)
	props := content.NewPropertyMap()
	props.Set("process", content.StringValue(r.Process))
	props.Set("state", content.StringValue(string(r.State)))
	props.Set("started", content.DateValue(r.Started))
	props.Set("finished", content.DateValue(r.Finished))
	if err := s.CreateChild(ctx, root, r.Token, content.KindUnstructured, props); err != nil {
		return fmt.Errorf("store report %s: %w", r.Token, err)
	}

	for i, step := range r.Steps {
		name := fmt.Sprintf("step-%02d", i+1)
		sp := content.NewPropertyMap()
		sp.Set("name", content.StringValue(step.Name))
		sp.Set("status", content.StringValue(string(step.Status)))
		sp.Set("succeeded", content.IntValue(int64(step.Succeeded)))
		sp.Set("failed", content.IntValue(int64(len(step.Failures))))
		if step.Err != nil {
			sp.Set("error", content.StringValue(step.Err.Error()))
		}
		if err := s.CreateChild(ctx, base, name, content.KindUnstructured, sp); err != nil {
			return fmt.Errorf("store report %s: %w", r.Token, err)
		}

		stepPath := base.Join(name)
		for j, f := range step.Failures {
			fp := content.NewPropertyMap()
			fp.Set("target", content.StringValue(f.Target.String()))
			fp.Set("error", content.StringValue(f.Err.Error()))
			fp.Set("attempts", content.IntValue(int64(f.Attempts)))
			fp.Set("time", content.DateValue(f.Time))
			child := fmt.Sprintf("failure-%02d", j+1)
			if err := s.CreateChild(ctx, stepPath, child, content.KindUnstructured, fp); err != nil {
				return fmt.Errorf("store report %s: %w", r.Token, err)
			}
		}
	}
	return s.Commit(ctx)
}

// LoadReport reads a stored report back by instance token. Failure causes
// come back as opaque error strings.
func LoadReport(ctx context.Context, s repo.Session, token string) (*engine.Report, error) {
	base := content.NewPath(ReportRoot).Join(token)
	props, err := s.Properties(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", token, err)
	}

	r := &engine.Report{
		Token:    token,
		Process:  getString(props, "process"),
		State:    engine.ProcessState(getString(props, "state")),
		Started:  getDate(props, "started"),
		Finished: getDate(props, "finished"),
	}

	steps, err := s.Children(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", token, err)
	}
	for _, stepNode := range steps {
		sp, err := s.Properties(ctx, stepNode.Path)
		if err != nil {
			return nil, fmt.Errorf("load report %s: %w", token, err)
		}
		step := engine.StepReport{
			Name:      getString(sp, "name"),
			Status:    engine.StepStatus(getString(sp, "status")),
			Succeeded: getInt(sp, "succeeded"),
		}
		if msg := getString(sp, "error"); msg != "" {
			step.Err = errors.New(msg)
		}

		failures, err := s.Children(ctx, stepNode.Path)
		if err != nil {
			return nil, fmt.Errorf("load report %s: %w", token, err)
		}
		for _, failNode := range failures {
			fp, err := s.Properties(ctx, failNode.Path)
			if err != nil {
				return nil, fmt.Errorf("load report %s: %w", token, err)
			}
			step.Failures = append(step.Failures, engine.Failure{
				Target:   content.NewPath(getString(fp, "target")),
				Err:      errors.New(getString(fp, "error")),
				Attempts: getInt(fp, "attempts"),
				Time:     getDate(fp, "time"),
			})
		}
		r.Steps = append(r.Steps, step)
	}
	return r, nil
}

// ListReports summarizes every stored report, name-ordered by token.
// UUIDv7 tokens sort by creation time, so the listing comes back in
// launch order.
func ListReports(ctx context.Context, s repo.Session) ([]Summary, error) {
	root := content.NewPath(ReportRoot)
	ok, err := s.Exists(ctx, root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	children, err := s.Children(ctx, root)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(children))
	for _, child := range children {
		props, err := s.Properties(ctx, child.Path)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			Token:   child.Path.Name(),
			Process: getString(props, "process"),
			State:   engine.ProcessState(getString(props, "state")),
			Started: getDate(props, "started"),
		})
	}
	return summaries, nil
}

// ensurePath creates any missing ancestors of p as plain folders.
func ensurePath(ctx context.Context, s repo.Session, p content.Path) error {
	if p.IsEmpty() || p == content.Separator {
		return nil
	}
	ok, err := s.Exists(ctx, p)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := ensurePath(ctx, s, p.Parent()); err != nil {
		return err
	}
	return s.CreateChild(ctx, p.Parent(), p.Name(), content.KindFolder, nil)
}

func getString(props *content.PropertyMap, key string) string {
	if v, ok := props.Get(key); ok {
		if sv, ok := v.(content.StringValue); ok {
			return string(sv)
		}
	}
	return ""
}

func getInt(props *content.PropertyMap, key string) int {
	if v, ok := props.Get(key); ok {
		if iv, ok := v.(content.IntValue); ok {
			return int(iv)
		}
	}
	return 0
}

func getDate(props *content.PropertyMap, key string) time.Time {
	if v, ok := props.Get(key); ok {
		if dv, ok := v.(content.DateValue); ok {
			return time.Time(dv)
		}
	}
	return time.Time{}
}
