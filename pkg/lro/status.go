package lro

import "fmt"

// OperationStatus is the status of a remote operation as reported by the
// remote service. The wire form is uppercase.
type OperationStatus string

const (
	// StatusPending indicates the remote has accepted the operation but not
	// started executing it.
	StatusPending OperationStatus = "PENDING"

	// StatusRunning indicates the remote is executing the operation.
	StatusRunning OperationStatus = "RUNNING"

	// StatusSucceeded indicates the operation finished and its result can be
	// fetched.
	StatusSucceeded OperationStatus = "SUCCEEDED"

	// StatusFailed indicates the operation finished unsuccessfully on the
	// remote side.
	StatusFailed OperationStatus = "FAILED"
)

// IsTerminal returns true if the remote status represents a final state.
func (s OperationStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// IsActive returns true if the operation is still in flight on the remote.
func (s OperationStatus) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

// Validate checks if the operation status is one the orchestrator knows.
func (s OperationStatus) Validate() error {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid operation status: %q", string(s))
	}
}

// Phase is the position of a run inside the orchestration state machine.
type Phase string

const (
	// PhaseInit indicates the run has been created but nothing has been sent
	// to the remote yet.
	PhaseInit Phase = "INIT"

	// PhaseSubmitting indicates Start is being invoked on the remote.
	PhaseSubmitting Phase = "SUBMITTING"

	// PhasePolling indicates the run is waiting on the remote, checking its
	// status once per poll interval.
	PhasePolling Phase = "POLLING"

	// PhaseFetching indicates the remote reported success and the result is
	// being retrieved.
	PhaseFetching Phase = "FETCHING"

	// PhaseDone indicates the run completed with a result.
	PhaseDone Phase = "DONE"

	// PhaseFailed indicates the run completed with a classified failure.
	// Cancelled runs also land here, carrying a cancelled-class error.
	PhaseFailed Phase = "FAILED"

	// PhaseTimedOut indicates the retry budget was exhausted before the
	// remote reached a terminal status.
	PhaseTimedOut Phase = "TIMED_OUT"
)

// IsTerminal returns true if the phase is one of the three final states.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed || p == PhaseTimedOut
}

// Validate checks if the phase is a known state-machine position.
func (p Phase) Validate() error {
	switch p {
	case PhaseInit, PhaseSubmitting, PhasePolling, PhaseFetching,
		PhaseDone, PhaseFailed, PhaseTimedOut:
		return nil
	default:
		return fmt.Errorf("invalid phase: %q", string(p))
	}
}

// Decision is the outcome of classifying a polled status.
type Decision string

const (
	// DecisionContinue keeps polling: the remote is still working.
	DecisionContinue Decision = "continue"

	// DecisionFetch moves to result retrieval: the remote succeeded.
	DecisionFetch Decision = "fetch"

	// DecisionFail terminates the run: the remote reported failure.
	DecisionFail Decision = "fail"
)

// Classify maps a polled remote status onto the next state-machine decision.
// A status outside the known set returns a classification error; the caller
// must fail the run rather than retry.
func Classify(status OperationStatus) (Decision, error) {
	switch status {
	case StatusPending, StatusRunning:
		return DecisionContinue, nil
	case StatusSucceeded:
		return DecisionFetch, nil
	case StatusFailed:
		return DecisionFail, nil
	default:
		return DecisionFail, NewClassificationError(
			fmt.Sprintf("remote reported unrecognized status %q", string(status)), nil)
	}
}
