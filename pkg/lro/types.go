package lro

import (
	"encoding/json"
	"time"
)

// OperationHandle is the opaque identifier a remote issues for a started
// operation. It is the only token used in status and result calls.
type OperationHandle string

// OperationRequest describes one long-running operation to drive to
// completion. It is immutable once submitted; the runner copies it into the
// run state and never reads it again.
type OperationRequest struct {
	// Payload is the operation body, opaque to the orchestrator. For the
	// analytics remotes shipped with this module it is SQL text.
	Payload string `json:"payload"`

	// MaxRetries optionally overrides the configured retry budget for this
	// request. Nil means use the runner's configured budget; zero is a valid
	// explicit budget meaning a single status check.
	MaxRetries *int `json:"max_retries,omitempty"`

	// Labels are caller annotations carried into logs, events, and history.
	// The orchestrator never interprets them.
	Labels map[string]string `json:"labels,omitempty"`
}

// State is the complete orchestration state of one run. Exactly one run
// goroutine owns and mutates it; everyone else sees copies. Once the phase is
// terminal the state never changes again.
type State struct {
	// RunID is the orchestrator-side identifier for this run.
	RunID string `json:"run_id"`

	// Request is the submitted request, immutable.
	Request OperationRequest `json:"request"`

	// Handle is the remote operation handle, set on successful submission.
	Handle OperationHandle `json:"handle,omitempty"`

	// Phase is the current state-machine position.
	Phase Phase `json:"phase"`

	// Status is the last status observed from the remote.
	Status OperationStatus `json:"status,omitempty"`

	// RetryCount is the number of polls that did not terminate the polling
	// loop. It never exceeds MaxRetries.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the effective retry budget for this run, resolved from
	// the request override or the runner configuration at submission.
	MaxRetries int `json:"max_retries"`

	// Result is the opaque result payload, set only on the transition from
	// FETCHING to DONE.
	Result json.RawMessage `json:"result,omitempty"`

	// Failure is the classified error, set only when the run lands in FAILED.
	Failure *OpError `json:"failure,omitempty"`

	// StartedAt is when the run entered SUBMITTING.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run reached a terminal phase.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OutcomeKind is the caller-facing classification of a finished run.
type OutcomeKind string

const (
	// OutcomeSuccess indicates the result was fetched and is present.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeFailed indicates the run resolved into a classified failure.
	OutcomeFailed OutcomeKind = "failed"

	// OutcomeTimedOut indicates the retry budget was exhausted.
	OutcomeTimedOut OutcomeKind = "timed_out"

	// OutcomeCancelled indicates cooperative cancellation ended the run.
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the single structured terminal result of a run. Every run
// resolves into exactly one Outcome; awaiting a finished run returns the same
// value again without touching the remote.
type Outcome struct {
	// Kind classifies how the run ended.
	Kind OutcomeKind `json:"status"`

	// RunID is the orchestrator-side run identifier.
	RunID string `json:"run_id"`

	// Handle is the remote operation handle, empty if submission never
	// succeeded.
	Handle OperationHandle `json:"handle,omitempty"`

	// RetryCount is the number of consumed retries; for timed-out runs it
	// equals the run's budget exactly.
	RetryCount int `json:"polls"`

	// Result is the opaque result payload, present only on success.
	Result json.RawMessage `json:"result,omitempty"`

	// Failure carries the classified error for failed and cancelled runs.
	Failure *OpError `json:"error,omitempty"`

	// StartedAt is when the run entered SUBMITTING.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run reached its terminal phase.
	CompletedAt time.Time `json:"completed_at"`

	// Duration is CompletedAt minus StartedAt.
	Duration time.Duration `json:"duration"`
}

// outcomeOf freezes a terminal state into an Outcome. The state must already
// be terminal; the mapping from phase to kind is:
// DONE -> success, TIMED_OUT -> timed_out, FAILED -> failed unless the
// failure class is cancelled, which maps to cancelled.
func outcomeOf(st *State) *Outcome {
	out := &Outcome{
		RunID:      st.RunID,
		Handle:     st.Handle,
		RetryCount: st.RetryCount,
		StartedAt:  st.StartedAt,
	}
	if st.CompletedAt != nil {
		out.CompletedAt = *st.CompletedAt
		out.Duration = st.CompletedAt.Sub(st.StartedAt)
	}

	switch st.Phase {
	case PhaseDone:
		out.Kind = OutcomeSuccess
		out.Result = st.Result
	case PhaseTimedOut:
		out.Kind = OutcomeTimedOut
	default:
		out.Kind = OutcomeFailed
		out.Failure = st.Failure
		if st.Failure != nil && st.Failure.Class == FailureCancelled {
			out.Kind = OutcomeCancelled
		}
	}
	return out
}

// Transition is one observed state-machine step. Observers receive a value
// copy, so holding on to it is safe.
type Transition struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// From is the phase being left.
	From Phase `json:"from"`

	// To is the phase being entered.
	To Phase `json:"to"`

	// Status is the last remote status observed at transition time.
	Status OperationStatus `json:"status,omitempty"`

	// Handle is the remote operation handle, if issued.
	Handle OperationHandle `json:"handle,omitempty"`

	// RetryCount is the retry counter at transition time.
	RetryCount int `json:"retry_count"`

	// Failure is set when the transition enters FAILED.
	Failure *OpError `json:"failure,omitempty"`

	// At is when the transition happened.
	At time.Time `json:"at"`
}

// Outcome reports the outcome kind a terminal transition resolves to. The
// second return is false when the transition is not terminal.
func (t Transition) Outcome() (OutcomeKind, bool) {
	switch t.To {
	case PhaseDone:
		return OutcomeSuccess, true
	case PhaseTimedOut:
		return OutcomeTimedOut, true
	case PhaseFailed:
		if t.Failure != nil && t.Failure.Class == FailureCancelled {
			return OutcomeCancelled, true
		}
		return OutcomeFailed, true
	}
	return "", false
}
