package lro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Options configures a Runner.
type Options struct {
	// PollInterval is the fixed suspension between status checks. Required,
	// must be positive.
	PollInterval time.Duration

	// MaxRetries is the default retry budget per run. Must be >= 0; zero
	// means a single status check per run.
	MaxRetries int

	// Observer receives every state-machine transition. Optional.
	Observer Observer

	// MaxConcurrent bounds how many runs may be in flight at once; further
	// submissions queue for a slot. Zero means unbounded.
	MaxConcurrent int
}

// Runner submits long-running operations and drives each one to a terminal
// Outcome on its own goroutine. Runs are fully independent of each other and
// share only the Remote adapter, which must be safe for concurrent use.
type Runner struct {
	remote Remote
	opts   Options
	sem    chan struct{}

	mu   sync.RWMutex
	runs map[string]*run
}

// run is the runner-side record of one submitted operation. The machine owns
// the live State; the record keeps a lock-guarded snapshot and the memoized
// Outcome behind a done channel.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	snap    State
	outcome *Outcome
}

func (r *run) setSnapshot(st State) {
	r.mu.Lock()
	r.snap = st
	r.mu.Unlock()
}

func (r *run) snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

func (r *run) complete(out *Outcome) {
	r.mu.Lock()
	r.outcome = out
	r.mu.Unlock()
	close(r.done)
}

func (r *run) result() *Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.outcome
}

// NewRunner creates a runner for the given remote. The options are validated
// once here; an invalid configuration is rejected before any run exists.
func NewRunner(remote Remote, opts Options) (*Runner, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote is nil")
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", opts.PollInterval)
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0, got %d", opts.MaxRetries)
	}
	if opts.MaxConcurrent < 0 {
		return nil, fmt.Errorf("max concurrent must be >= 0, got %d", opts.MaxConcurrent)
	}

	r := &Runner{
		remote: remote,
		opts:   opts,
		runs:   make(map[string]*run),
	}
	if opts.MaxConcurrent > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrent)
	}
	return r, nil
}

// Submit validates the request, registers a new run, and starts driving it
// on its own goroutine. It returns the run ID immediately; use Await to block
// for the Outcome. The run's lifetime is controlled by Cancel, not by the
// submission context.
func (r *Runner) Submit(ctx context.Context, req OperationRequest) (string, error) {
	budget := r.opts.MaxRetries
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			return "", NewSubmissionError(
				fmt.Sprintf("max retries override must be >= 0, got %d", *req.MaxRetries), nil)
		}
		budget = *req.MaxRetries
	}

	runID := ulid.Make().String()
	st := &State{
		RunID:      runID,
		Request:    req,
		Phase:      PhaseInit,
		MaxRetries: budget,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	rn := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		snap:   cloneState(st),
	}

	r.mu.Lock()
	r.runs[runID] = rn
	r.mu.Unlock()

	go r.drive(runCtx, rn, st)

	return runID, nil
}

// drive acquires a concurrency slot if one is configured, then runs the
// machine to completion and memoizes the Outcome.
func (r *Runner) drive(ctx context.Context, rn *run, st *State) {
	defer rn.cancel()

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			// The machine resolves the cancellation into the Outcome.
		}
	}

	observer := MultiObserver(snapshotObserver(rn, st), r.opts.Observer)
	m := newMachine(r.remote, r.opts.PollInterval, observer, st)
	rn.complete(m.run(ctx))
}

// snapshotObserver keeps the run record's state copy current. It runs on the
// machine goroutine, so reading the live state here is race-free.
func snapshotObserver(rn *run, st *State) Observer {
	return ObserverFunc(func(_ context.Context, _ Transition) {
		rn.setSnapshot(cloneState(st))
	})
}

// Await blocks until the run reaches a terminal state or ctx expires.
// Awaiting a finished run returns the same memoized Outcome again and
// performs no remote calls; an expired ctx leaves the run undisturbed.
func (r *Runner) Await(ctx context.Context, runID string) (*Outcome, error) {
	rn, err := r.get(runID)
	if err != nil {
		return nil, err
	}

	select {
	case <-rn.done:
		return rn.result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel requests cooperative cancellation of a run. It is idempotent and a
// no-op for runs that already reached a terminal state. After the
// cancellation is observed, no further remote calls happen for the run and
// Await returns promptly with the cancelled Outcome.
func (r *Runner) Cancel(runID string) error {
	rn, err := r.get(runID)
	if err != nil {
		return err
	}
	rn.cancel()
	return nil
}

// Snapshot returns a copy of the run's current orchestration state.
func (r *Runner) Snapshot(runID string) (State, error) {
	rn, err := r.get(runID)
	if err != nil {
		return State{}, err
	}
	return rn.snapshot(), nil
}

// Execute submits the request and awaits its Outcome. Convenience for
// callers that drive a single run synchronously: here the caller's ctx also
// bounds the run itself, so a ctx that expires mid-run cancels the run
// cooperatively and the cancelled Outcome is returned.
func (r *Runner) Execute(ctx context.Context, req OperationRequest) (*Outcome, error) {
	runID, err := r.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := r.Await(ctx, runID)
	if err == nil {
		return out, nil
	}

	// The only way Await fails for a freshly submitted run is ctx expiry.
	if cancelErr := r.Cancel(runID); cancelErr != nil {
		return nil, err
	}
	return r.Await(context.Background(), runID)
}

func (r *Runner) get(runID string) (*run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rn, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return rn, nil
}

// cloneState copies a State deeply enough that the caller can hold it while
// the machine keeps mutating the original. Result bytes are shared; they are
// write-once by construction.
func cloneState(st *State) State {
	out := *st
	if st.Request.Labels != nil {
		labels := make(map[string]string, len(st.Request.Labels))
		for k, v := range st.Request.Labels {
			labels[k] = v
		}
		out.Request.Labels = labels
	}
	if st.Request.MaxRetries != nil {
		v := *st.Request.MaxRetries
		out.Request.MaxRetries = &v
	}
	if st.CompletedAt != nil {
		t := *st.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
