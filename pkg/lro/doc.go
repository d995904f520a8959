// Package lro implements the core orchestration of asynchronous long-running
// operations: submit, poll until terminal, fetch, resolve.
//
// # Overview
//
// A run drives one remote operation through an explicit state machine:
//
//	INIT -> SUBMITTING -> POLLING -> FETCHING -> DONE
//	                         |    \__________-> FAILED
//	                         \_________________-> TIMED_OUT
//
// POLLING is the only cycle: each iteration suspends for exactly one poll
// interval, checks the remote status once, and either keeps going, moves to
// fetching, or terminates. Timeouts are enforced purely through a retry
// counter bounded by a per-run budget, never through wall-clock deadlines,
// so the behavior stays deterministic under scheduling jitter. A poll that
// terminates the loop does not consume a retry; a run that exhausts its
// budget reports a retry count exactly equal to the budget.
//
// # Core Domain Types
//
//   - OperationRequest: the immutable submission (opaque payload, optional
//     per-request retry budget, labels)
//   - OperationHandle: the remote's opaque token for a started operation
//   - OperationStatus: the remote status vocabulary (PENDING, RUNNING,
//     SUCCEEDED, FAILED)
//   - State: the explicit orchestration state owned by one run goroutine
//   - Outcome: the single structured terminal result of a run
//   - OpError: a classified failure (submission, lookup, classification,
//     fetch, remote, cancelled)
//
// # Remote Interface
//
// Remotes implement the minimal asynchronous operation protocol:
//
//	type Remote interface {
//	    Start(ctx context.Context, payload string) (OperationHandle, error)
//	    GetStatus(ctx context.Context, handle OperationHandle) (OperationStatus, error)
//	    GetResult(ctx context.Context, handle OperationHandle) (json.RawMessage, error)
//	}
//
// The transports packages ship a deterministic in-process simulator and an
// HTTP client/server pair for the same protocol.
//
// # Runner
//
// Runner manages any number of independent runs. Submit returns a ULID run
// ID immediately; Await blocks on the run's completion channel and returns
// the memoized Outcome as often as asked, without re-touching the remote;
// Cancel requests cooperative cancellation, observable at every suspension
// point and between phases. Failures never panic across the run boundary:
// everything resolves into an Outcome carrying a classified OpError.
//
// # Observability
//
// Every transition (including each POLLING self-transition) is delivered to
// an optional Observer. The telemetry package bridges observers onto
// zerolog, Prometheus, OpenTelemetry, and the event publisher; the core has
// no logging dependency of its own and runs fine with a nil Observer.
package lro
