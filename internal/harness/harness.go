// Package harness runs declarative YAML scenarios against the process
// engine: it seeds an in-memory repository, launches the scenario's job,
// and evaluates expectations on the report and the final tree. Golden
// comparison of the rendered report keeps regressions visible.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/process"
	"github.com/grovekit/grove/internal/repo"
)

// DefaultToken is the fixed instance token used when a scenario does not
// declare one. Fixed tokens keep golden files stable.
const DefaultToken = "test-token-0001"

// Result carries everything a scenario run produced.
type Result struct {
	// Report is the last launch's report; nil when the launch failed
	// before any step ran.
	Report *engine.Report

	// RunErr is the last launch's error (abort cause, config error, or
	// precondition error).
	RunErr error

	// Repo is the repository after the run, for direct inspection.
	Repo *repo.MemoryRepository

	// Errors lists expectation failures; empty means the scenario passed.
	Errors []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Run executes a scenario in a fresh in-memory repository and evaluates
// its expectations. The returned error covers harness-level failures
// (bad seed data, unknown job); expectation failures land in
// Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	r := repo.NewMemoryWithOptions(repo.MemoryOptions{
		MaterializeContentStubs: scenario.Options.ContentStubs,
	})

	if err := seedTree(r, scenario.Tree); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	for _, entry := range scenario.ACL {
		if len(entry.Grant) > 0 {
			r.Grant(content.NewPath(entry.Path), entry.Grant...)
		}
		if len(entry.Deny) > 0 {
			r.Deny(content.NewPath(entry.Path), entry.Deny...)
		}
	}

	def, err := scenario.Job.definition()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	token := scenario.Token
	if token == "" {
		token = DefaultToken
	}
	runs := scenario.Job.Runs
	if runs <= 0 {
		runs = 1
	}

	result := &Result{Repo: r}
	for i := 0; i < runs; i++ {
		runToken := token
		if runs > 1 {
			runToken = fmt.Sprintf("%s-%d", token, i+1)
		}
		opts := []engine.ProcessOption{
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			engine.WithTokenGenerator(engine.NewFixedGenerator(runToken)),
		}
		if scenario.Options.Workers > 0 {
			opts = append(opts, engine.WithWorkers(scenario.Options.Workers))
		}
		result.Report, result.RunErr = process.Launch(context.Background(), r, def, opts...)
	}

	result.Errors = evaluate(context.Background(), r, scenario.Expect, result)
	return result, nil
}

func seedTree(r *repo.MemoryRepository, nodes []TreeNode) error {
	s, err := r.NewSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()

	for i, n := range nodes {
		path := content.NewPath(n.Path)
		props := content.NewPropertyMap()
		for key, lit := range n.Properties {
			v, err := parseLiteral(lit)
			if err != nil {
				return fmt.Errorf("tree[%d] property %q: %w", i, key, err)
			}
			props.Set(key, v)
		}
		if err := s.CreateChild(context.Background(), path.Parent(), path.Name(), n.Kind, props); err != nil {
			return fmt.Errorf("tree[%d] seed %s: %w", i, path, err)
		}
	}
	return nil
}
