package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/grovekit/grove/internal/content"
)

// StepReport is one step's aggregated outcome.
type StepReport struct {
	Name      string
	Status    StepStatus
	Succeeded int
	Failures  []Failure
	Err       error
}

// Report is the final aggregated outcome of a process run. An operator can
// tell from it exactly how far the process progressed and which nodes need
// manual remediation.
type Report struct {
	Process  string
	Token    string
	State    ProcessState
	Steps    []StepReport
	Started  time.Time
	Finished time.Time
}

// TotalSucceeded sums succeeded items across steps.
func (r *Report) TotalSucceeded() int {
	n := 0
	for _, s := range r.Steps {
		n += s.Succeeded
	}
	return n
}

// TotalFailed sums permanent item failures across steps.
func (r *Report) TotalFailed() int {
	n := 0
	for _, s := range r.Steps {
		n += len(s.Failures)
	}
	return n
}

// Render writes a deterministic text rendering: statuses, counts, and
// failure causes, but no wall-clock times, so renderings are directly
// comparable across runs (golden tests rely on this).
func (r *Report) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s [%s]\nstate: %s\n",
		content.FriendlyName(r.Process), r.Token, r.State); err != nil {
		return err
	}
	for i, s := range r.Steps {
		if _, err := fmt.Fprintf(w, "step %d: %s - %s (succeeded=%d failed=%d)\n",
			i+1, content.FriendlyName(s.Name), s.Status, s.Succeeded, len(s.Failures)); err != nil {
			return err
		}
		if s.Err != nil {
			if _, err := fmt.Fprintf(w, "  error: %v\n", s.Err); err != nil {
				return err
			}
		}
		for _, f := range s.Failures {
			if _, err := fmt.Fprintf(w, "  failed %s after %d attempt(s): %v\n",
				f.Target, f.Attempts, f.Err); err != nil {
				return err
			}
		}
	}
	return nil
}
