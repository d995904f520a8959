package telemetry

import (
	"context"
	"encoding/json"

	"github.com/openlro/openlro/pkg/lro"
)

// InstrumentedRemote wraps a Remote with per-call tracing, metrics and debug
// logging. It implements lro.Remote and can stand in anywhere the wrapped
// remote is used.
type InstrumentedRemote struct {
	next    lro.Remote
	logger  *Logger
	metrics *Metrics
	tracer  *Tracer
}

// NewInstrumentedRemote wraps next with the telemetry instance's components.
func NewInstrumentedRemote(next lro.Remote, tel *Telemetry) *InstrumentedRemote {
	return &InstrumentedRemote{
		next:    next,
		logger:  tel.Logger.NewComponentLogger("remote"),
		metrics: tel.Metrics,
		tracer:  tel.Tracer,
	}
}

// Start submits the payload through the wrapped remote.
func (r *InstrumentedRemote) Start(ctx context.Context, payload string) (lro.OperationHandle, error) {
	var handle lro.OperationHandle
	err := r.record(ctx, "start", func(ctx context.Context) error {
		var err error
		handle, err = r.next.Start(ctx, payload)
		return err
	})
	if err == nil {
		r.logger.WithHandle(string(handle)).Debug("operation submitted")
	}
	return handle, err
}

// GetStatus checks the operation status through the wrapped remote.
func (r *InstrumentedRemote) GetStatus(ctx context.Context, handle lro.OperationHandle) (lro.OperationStatus, error) {
	var status lro.OperationStatus
	err := r.record(ctx, "get_status", func(ctx context.Context) error {
		var err error
		status, err = r.next.GetStatus(ctx, handle)
		return err
	})
	if err == nil {
		r.logger.WithHandle(string(handle)).WithField("status", string(status)).Debug("status checked")
	}
	return status, err
}

// GetResult fetches the operation result through the wrapped remote.
func (r *InstrumentedRemote) GetResult(ctx context.Context, handle lro.OperationHandle) (json.RawMessage, error) {
	var result json.RawMessage
	err := r.record(ctx, "get_result", func(ctx context.Context) error {
		var err error
		result, err = r.next.GetResult(ctx, handle)
		return err
	})
	if err == nil {
		r.logger.WithHandle(string(handle)).WithField("bytes", len(result)).Debug("result fetched")
	}
	return result, err
}

func (r *InstrumentedRemote) record(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	spanCtx, span := r.tracer.StartRemoteSpan(ctx, operation)
	defer span.End()

	timer := NewTimer()
	err := fn(spanCtx)

	r.metrics.RecordRemoteCall(operation, timer.Duration())
	if err != nil {
		r.metrics.RecordRemoteError(operation)
		RecordError(span, err)
		r.logger.WithError(err).WithField("operation", operation).Debug("remote call failed")
		return err
	}

	RecordSuccess(span)
	return nil
}
