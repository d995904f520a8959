package stores

import (
	"context"
	"sync"
	"time"

	"github.com/openlro/openlro/pkg/lro"
)

// Recorder buffers observed transitions and persists each run once it
// resolves. It implements lro.Observer; wire it into the runner alongside
// the telemetry observers and call RecordOutcome after the run returns.
// The orchestrator core never touches the store itself.
type Recorder struct {
	store      Store
	maxRetries int

	mu      sync.Mutex
	pending map[string][]*TransitionRecord
}

// NewRecorder creates a recorder writing to store. maxRetries is the
// runner's configured budget, used when a request carries no override.
func NewRecorder(store Store, maxRetries int) *Recorder {
	return &Recorder{
		store:      store,
		maxRetries: maxRetries,
		pending:    make(map[string][]*TransitionRecord),
	}
}

// OnTransition implements lro.Observer by buffering the transition until
// the run resolves.
func (r *Recorder) OnTransition(_ context.Context, t lro.Transition) {
	rec := &TransitionRecord{
		RunID:      t.RunID,
		FromPhase:  string(t.From),
		ToPhase:    string(t.To),
		Status:     string(t.Status),
		RetryCount: t.RetryCount,
		OccurredAt: t.At,
	}
	if t.Failure != nil {
		msg := t.Failure.Error()
		rec.Error = &msg
	}

	r.mu.Lock()
	r.pending[t.RunID] = append(r.pending[t.RunID], rec)
	r.mu.Unlock()
}

// RecordOutcome persists the resolved run together with its buffered
// transitions.
func (r *Recorder) RecordOutcome(ctx context.Context, req lro.OperationRequest, out *lro.Outcome) error {
	transitions := r.take(out.RunID)

	budget := r.maxRetries
	if req.MaxRetries != nil {
		budget = *req.MaxRetries
	}

	run := &RunRecord{
		ID:          out.RunID,
		Payload:     req.Payload,
		Handle:      string(out.Handle),
		Outcome:     string(out.Kind),
		FinalStatus: finalStatus(transitions),
		RetryCount:  out.RetryCount,
		MaxRetries:  budget,
		StartedAt:   out.StartedAt,
		CompletedAt: out.CompletedAt,
		DurationMS:  out.Duration.Milliseconds(),
		CreatedAt:   time.Now(),
	}
	if len(out.Result) > 0 {
		result := string(out.Result)
		run.Result = &result
	}
	if out.Failure != nil {
		msg := out.Failure.Error()
		run.Error = &msg
	}

	return r.store.SaveRun(ctx, run, transitions)
}

// Discard drops the buffered transitions of a run that will not be
// recorded.
func (r *Recorder) Discard(runID string) {
	r.mu.Lock()
	delete(r.pending, runID)
	r.mu.Unlock()
}

func (r *Recorder) take(runID string) []*TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	transitions := r.pending[runID]
	delete(r.pending, runID)
	return transitions
}

// finalStatus is the last remote status observed before the run resolved.
func finalStatus(transitions []*TransitionRecord) string {
	for i := len(transitions) - 1; i >= 0; i-- {
		if transitions[i].Status != "" {
			return transitions[i].Status
		}
	}
	return ""
}
