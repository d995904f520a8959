package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openlro/openlro/pkg/lro"
)

// GateConfig carries the request attributes policies see alongside the payload.
// A gate is built per submission, so the labels and budget override of that
// one request travel with it.
type GateConfig struct {
	// Labels are the request labels attached to the submission.
	Labels map[string]string

	// MaxRetries is the requested retry budget override, if any.
	MaxRetries *int

	// Context is the base evaluation context. When nil a submit context is
	// stamped at evaluation time.
	Context *PolicyContext
}

// GatedRemote wraps a Remote and denies Start calls whose submission violates
// policy. The denial surfaces as a Start error, so the orchestrator resolves
// the run as a submission failure without the inner remote ever being called.
type GatedRemote struct {
	next   lro.Remote
	engine *Engine
	cfg    GateConfig
}

// NewGatedRemote wraps next with a policy gate.
func NewGatedRemote(next lro.Remote, engine *Engine, cfg GateConfig) *GatedRemote {
	return &GatedRemote{
		next:   next,
		engine: engine,
		cfg:    cfg,
	}
}

// Start evaluates the submission against all enabled policies and only
// forwards it when allowed.
func (g *GatedRemote) Start(ctx context.Context, payload string) (lro.OperationHandle, error) {
	input := &PolicyInput{
		Payload:    payload,
		Labels:     g.cfg.Labels,
		MaxRetries: g.cfg.MaxRetries,
		Context:    g.cfg.Context,
	}
	if input.Context == nil {
		input.Context = &PolicyContext{
			Timestamp: time.Now(),
			Operation: "submit",
		}
	}

	result, err := g.engine.EvaluateSubmission(ctx, input)
	if err != nil {
		return "", fmt.Errorf("policy evaluation failed: %w", err)
	}
	if !result.Allowed {
		return "", &DenialError{Violations: result.Violations}
	}

	return g.next.Start(ctx, payload)
}

// GetStatus delegates to the wrapped remote.
func (g *GatedRemote) GetStatus(ctx context.Context, handle lro.OperationHandle) (lro.OperationStatus, error) {
	return g.next.GetStatus(ctx, handle)
}

// GetResult delegates to the wrapped remote.
func (g *GatedRemote) GetResult(ctx context.Context, handle lro.OperationHandle) (json.RawMessage, error) {
	return g.next.GetResult(ctx, handle)
}

// DenialError reports the violations that blocked a submission.
type DenialError struct {
	Violations []PolicyViolation
}

func (e *DenialError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "submission denied by policy"
	case 1:
		return fmt.Sprintf("submission denied by policy %s: %s",
			e.Violations[0].Policy, e.Violations[0].Message)
	default:
		return fmt.Sprintf("submission denied by %d policy violations (first: %s)",
			len(e.Violations), e.Violations[0].Message)
	}
}
