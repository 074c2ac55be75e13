package engine

import (
	"context"
	"sync"
	"time"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/repo"
)

// DefaultWorkers is the worker-pool width used when none is configured.
const DefaultWorkers = 4

// OpFunc is the operation a deferred action performs. The session is
// borrowed for the duration of one attempt and must not be retained.
type OpFunc func(ctx context.Context, s repo.Session) error

// Action is an independently retryable unit of work bound to a target
// path. The queue does not interpret the operation's semantics.
type Action struct {
	Target content.Path
	Op     OpFunc

	// MaxAttempts is the total attempt budget; zero means one attempt.
	MaxAttempts int

	// Delay is the fixed sleep between attempts.
	Delay time.Duration
}

// Failure records one permanently failed action. Failures never mutate or
// remove the underlying node; they surface only in the final report.
type Failure struct {
	Target   content.Path
	Err      error
	Time     time.Time
	Attempts int
}

// Outcome summarizes a drained queue.
type Outcome struct {
	Succeeded int
	Failures  []Failure
}

// Queue collects deferred actions and executes them on a worker pool.
//
// Each attempt of each action runs against a freshly acquired session; no
// session is ever shared across concurrent actions. RunAll returns only
// when every submitted action has reached a terminal success/failure
// state. The queue holds no domain state beyond its pending and failed
// lists.
//
// Thread-safety: Submit may be called from any goroutine up until RunAll
// is invoked; the failure accumulator supports concurrent append from
// parallel action completions.
type Queue struct {
	repository repo.Repository
	workers    int

	mu       sync.Mutex
	pending  []Action
	failures []Failure
	success  int
	current  map[int]string // worker id -> in-flight item, diagnostics only
}

// NewQueue creates an empty queue draining into the given repository.
// workers <= 0 selects DefaultWorkers.
func NewQueue(repository repo.Repository, workers int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		repository: repository,
		workers:    workers,
		current:    make(map[int]string),
	}
}

// Submit queues an action with a single attempt.
func (q *Queue) Submit(target content.Path, op OpFunc) {
	q.SubmitAction(Action{Target: target, Op: op})
}

// SubmitWithRetry queues an action with a bounded retry budget: on
// failure the action sleeps delay and is re-attempted, up to maxAttempts
// total attempts. Exhausting the budget converts the failure into a
// permanent failure record.
func (q *Queue) SubmitWithRetry(target content.Path, op OpFunc, maxAttempts int, delay time.Duration) {
	q.SubmitAction(Action{Target: target, Op: op, MaxAttempts: maxAttempts, Delay: delay})
}

// SubmitAction queues a fully specified action.
func (q *Queue) SubmitAction(a Action) {
	if a.MaxAttempts <= 0 {
		a.MaxAttempts = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, a)
}

// Pending returns the number of not-yet-executed actions.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// CurrentItems snapshots the in-flight item identifiers, for progress
// reporting. Not part of the success/failure contract.
func (q *Queue) CurrentItems() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]string, 0, len(q.current))
	for _, item := range q.current {
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// RunAll drains the queue and blocks until every action is terminal.
//
// Actions run concurrently across the worker pool with no ordering
// guarantee between them; callers needing order submit to separate
// queues (steps are the ordering mechanism).
func (q *Queue) RunAll(ctx context.Context) Outcome {
	q.mu.Lock()
	actions := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(actions) == 0 {
		return q.outcome()
	}

	work := make(chan Action)
	var wg sync.WaitGroup
	for w := 0; w < q.workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for a := range work {
				q.runOne(ctx, id, a)
			}
		}(w)
	}

	for _, a := range actions {
		work <- a
	}
	close(work)
	wg.Wait()

	return q.outcome()
}

// runOne drives a single action to a terminal state, reacquiring a fresh
// session for every attempt.
func (q *Queue) runOne(ctx context.Context, worker int, a Action) {
	q.setCurrent(worker, a.Target.String())
	defer q.setCurrent(worker, "")

	var lastErr error
	attempts := 0
	for attempts < a.MaxAttempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++

		lastErr = q.attempt(ctx, a)
		if lastErr == nil {
			q.mu.Lock()
			q.success++
			q.mu.Unlock()
			return
		}

		if attempts < a.MaxAttempts {
			select {
			case <-time.After(a.Delay):
			case <-ctx.Done():
			}
		}
	}

	q.mu.Lock()
	q.failures = append(q.failures, Failure{
		Target:   a.Target,
		Err:      lastErr,
		Time:     time.Now(),
		Attempts: attempts,
	})
	q.mu.Unlock()
}

func (q *Queue) attempt(ctx context.Context, a Action) error {
	s, err := q.repository.NewSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return a.Op(ctx, s)
}

func (q *Queue) setCurrent(worker int, item string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current[worker] = item
}

func (q *Queue) outcome() Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := Outcome{Succeeded: q.success}
	out.Failures = append(out.Failures, q.failures...)
	return out
}
