package lro

import (
	"errors"
	"fmt"
)

// FailureClass identifies which part of the run protocol produced an error.
// Every failed run resolves into exactly one class, so callers can branch on
// where things went wrong without string matching.
type FailureClass string

const (
	// FailureSubmission indicates the remote rejected Start, or the request
	// was invalid before any remote call was made.
	FailureSubmission FailureClass = "submission"

	// FailureLookup indicates GetStatus failed, typically because the remote
	// no longer recognizes the operation handle.
	FailureLookup FailureClass = "lookup"

	// FailureClassification indicates the remote reported a status outside
	// the known vocabulary.
	FailureClassification FailureClass = "classification"

	// FailureFetch indicates GetResult failed after the remote reported
	// success.
	FailureFetch FailureClass = "fetch"

	// FailureRemote indicates the remote itself reported the operation as
	// FAILED.
	FailureRemote FailureClass = "remote"

	// FailureCancelled indicates cooperative cancellation was observed at a
	// suspension point or between phases.
	FailureCancelled FailureClass = "cancelled"
)

// OpError is a classified orchestration error with run context.
type OpError struct {
	// Class identifies the protocol step that failed.
	Class FailureClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Handle is the remote operation handle, if one was ever issued.
	Handle OperationHandle `json:"handle,omitempty"`

	// Phase is the state-machine phase the run was in when the error occurred.
	Phase Phase `json:"phase,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("[%s] %s (handle=%s)%s", e.Class, e.Message, e.Handle, e.unwrapSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is: two OpErrors match when their
// classes match, so sentinel comparisons like
// errors.Is(err, &OpError{Class: FailureLookup}) work.
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// WithHandle attaches the remote operation handle to the error.
func (e *OpError) WithHandle(handle OperationHandle) *OpError {
	e.Handle = handle
	return e
}

// WithPhase attaches the state-machine phase to the error.
func (e *OpError) WithPhase(phase Phase) *OpError {
	e.Phase = phase
	return e
}

// NewSubmissionError creates a submission-class error.
func NewSubmissionError(message string, err error) *OpError {
	return &OpError{Class: FailureSubmission, Message: message, Err: err}
}

// NewLookupError creates a lookup-class error.
func NewLookupError(message string, err error) *OpError {
	return &OpError{Class: FailureLookup, Message: message, Err: err}
}

// NewClassificationError creates a classification-class error.
func NewClassificationError(message string, err error) *OpError {
	return &OpError{Class: FailureClassification, Message: message, Err: err}
}

// NewFetchError creates a fetch-class error.
func NewFetchError(message string, err error) *OpError {
	return &OpError{Class: FailureFetch, Message: message, Err: err}
}

// NewRemoteFailureError creates a remote-class error for operations the
// remote itself reported as FAILED.
func NewRemoteFailureError(message string, err error) *OpError {
	return &OpError{Class: FailureRemote, Message: message, Err: err}
}

// NewCancelledError creates a cancelled-class error.
func NewCancelledError(message string, err error) *OpError {
	return &OpError{Class: FailureCancelled, Message: message, Err: err}
}

// IsSubmission returns true if the error is classified as a submission failure.
func IsSubmission(err error) bool {
	return classOf(err) == FailureSubmission
}

// IsLookup returns true if the error is classified as a lookup failure.
func IsLookup(err error) bool {
	return classOf(err) == FailureLookup
}

// IsClassification returns true if the error came from an unrecognized status.
func IsClassification(err error) bool {
	return classOf(err) == FailureClassification
}

// IsFetch returns true if the error is classified as a fetch failure.
func IsFetch(err error) bool {
	return classOf(err) == FailureFetch
}

// IsRemoteFailure returns true if the remote reported the operation FAILED.
func IsRemoteFailure(err error) bool {
	return classOf(err) == FailureRemote
}

// IsCancelled returns true if the error is classified as a cancellation.
func IsCancelled(err error) bool {
	return classOf(err) == FailureCancelled
}

func classOf(err error) FailureClass {
	var e *OpError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// ErrRunNotFound is returned when a run ID is not known to the runner.
var ErrRunNotFound = errors.New("run not found")
