package lro

import (
	"context"
	"encoding/json"
)

// Remote is the asynchronous operation protocol spoken by a remote service.
// Implementations must be safe for concurrent use: many runs share one
// adapter instance. The orchestrator never assumes Start is idempotent and
// therefore calls it at most once per run.
//
// Any configured remote-operation timeout hint is delivered to adapters at
// construction time rather than through this interface.
type Remote interface {
	// Start submits the operation and returns its handle. An error means the
	// remote rejected the submission; the orchestrator will not retry it.
	Start(ctx context.Context, payload string) (OperationHandle, error)

	// GetStatus reports the current status of a started operation. An error
	// (for example an unknown handle) fails the run with a lookup failure.
	GetStatus(ctx context.Context, handle OperationHandle) (OperationStatus, error)

	// GetResult retrieves the finished result. It is only valid once
	// GetStatus has reported SUCCEEDED; the orchestrator calls it at most
	// once per run and never retries a failed fetch.
	GetResult(ctx context.Context, handle OperationHandle) (json.RawMessage, error)
}
