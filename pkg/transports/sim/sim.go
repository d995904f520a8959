// Package sim provides a deterministic in-process remote for tests and local
// development. Operations run on a fixed clock: RUNNING until the configured
// duration has elapsed, then SUCCEEDED (or FAILED when the failure mode is
// set), with a canned analytics result payload.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlro/openlro/pkg/lro"
)

// DefaultDuration is how long a simulated operation stays RUNNING unless
// configured otherwise.
const DefaultDuration = 10 * time.Second

// Config controls the simulated remote.
type Config struct {
	// Duration is how long each operation reports RUNNING before reaching a
	// terminal status. Zero means operations complete on their first status
	// check.
	Duration time.Duration

	// Fail makes operations finish FAILED instead of SUCCEEDED.
	Fail bool

	// RejectSubmissions makes Start fail, for exercising submission error
	// handling end to end.
	RejectSubmissions bool

	// Script optionally overrides the clock-based status with a scenario
	// program evaluated on every status check.
	Script *Script
}

// Remote is the simulated remote service. It is safe for concurrent use by
// any number of runs.
type Remote struct {
	cfg Config

	mu  sync.RWMutex
	ops map[lro.OperationHandle]*operation

	starts       int
	statusChecks int
	fetches      int
}

// operation is one submitted simulated operation.
type operation struct {
	payload    string
	startedAt  time.Time
	polls      int
	lastStatus lro.OperationStatus
}

// Row is one record of the canned result set.
type Row struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Result is the canned analytics payload a successful operation returns.
type Result struct {
	Query    string `json:"query"`
	RowCount int    `json:"row_count"`
	Summary  string `json:"summary"`
	Rows     []Row  `json:"rows"`
}

// New creates a simulated remote.
func New(cfg Config) *Remote {
	return &Remote{
		cfg: cfg,
		ops: make(map[lro.OperationHandle]*operation),
	}
}

// Start registers a new simulated operation and returns its handle.
func (r *Remote) Start(_ context.Context, payload string) (lro.OperationHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.starts++
	if r.cfg.RejectSubmissions {
		return "", fmt.Errorf("submissions are disabled")
	}

	handle := lro.OperationHandle(uuid.New().String())
	r.ops[handle] = &operation{
		payload:   payload,
		startedAt: time.Now(),
	}
	return handle, nil
}

// GetStatus reports the operation status from elapsed time, or from the
// scenario script when one is configured.
func (r *Remote) GetStatus(_ context.Context, handle lro.OperationHandle) (lro.OperationStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statusChecks++
	op, ok := r.ops[handle]
	if !ok {
		return "", fmt.Errorf("unknown operation: %s", handle)
	}
	op.polls++

	if r.cfg.Script != nil {
		status, err := r.cfg.Script.Status(time.Since(op.startedAt), op.polls)
		if err != nil {
			return "", err
		}
		op.lastStatus = status
		return status, nil
	}

	op.lastStatus = r.statusLocked(op)
	return op.lastStatus, nil
}

// GetResult returns the canned result payload once the operation succeeded.
func (r *Remote) GetResult(_ context.Context, handle lro.OperationHandle) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fetches++
	op, ok := r.ops[handle]
	if !ok {
		return nil, fmt.Errorf("unknown operation: %s", handle)
	}
	status := op.lastStatus
	if r.cfg.Script == nil {
		status = r.statusLocked(op)
	}
	if status != lro.StatusSucceeded {
		return nil, fmt.Errorf("operation %s is not finished: %s", handle, status)
	}

	rows := []Row{
		{ID: 1, Name: "Alice", Value: 100},
		{ID: 2, Name: "Bob", Value: 200},
		{ID: 3, Name: "Charlie", Value: 300},
	}
	result := Result{
		Query:    op.payload,
		RowCount: len(rows),
		Summary:  fmt.Sprintf("Retrieved %d rows", len(rows)),
		Rows:     rows,
	}
	return json.Marshal(result)
}

func (r *Remote) statusLocked(op *operation) lro.OperationStatus {
	if time.Since(op.startedAt) < r.cfg.Duration {
		return lro.StatusRunning
	}
	if r.cfg.Fail {
		return lro.StatusFailed
	}
	return lro.StatusSucceeded
}

// Counters reports how often each protocol method was called.
func (r *Remote) Counters() (starts, statusChecks, fetches int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.starts, r.statusChecks, r.fetches
}

// Len reports how many operations the remote currently tracks.
func (r *Remote) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// Reset forgets all operations and zeroes the counters.
func (r *Remote) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = make(map[lro.OperationHandle]*operation)
	r.starts, r.statusChecks, r.fetches = 0, 0, 0
}
