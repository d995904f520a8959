package lro

import (
	"context"
	"errors"
	"time"
)

// machine drives a single run through the orchestration state machine. It is
// a plain loop over an explicit phase switch; POLLING -> POLLING is the only
// cycle and the only place the retry counter moves. One machine owns one
// State and runs on one goroutine.
type machine struct {
	remote   Remote
	interval time.Duration
	observer Observer
	st       *State
}

func newMachine(remote Remote, interval time.Duration, observer Observer, st *State) *machine {
	return &machine{
		remote:   remote,
		interval: interval,
		observer: observer,
		st:       st,
	}
}

// run drives the machine until a terminal phase is reached and freezes the
// state into an Outcome. It never panics across this boundary; every failure
// path resolves into a classified error inside the Outcome.
func (m *machine) run(ctx context.Context) *Outcome {
	for !m.st.Phase.IsTerminal() {
		// Cancellation is observable between any two phases, not only
		// inside the poll suspension.
		if err := ctx.Err(); err != nil {
			m.fail(ctx, NewCancelledError("run cancelled", err))
			continue
		}

		switch m.st.Phase {
		case PhaseInit:
			m.stepInit(ctx)
		case PhaseSubmitting:
			m.stepSubmit(ctx)
		case PhasePolling:
			m.stepPoll(ctx)
		case PhaseFetching:
			m.stepFetch(ctx)
		}
	}

	return outcomeOf(m.st)
}

// stepInit stamps the start time and hands over to submission. The effective
// retry budget was resolved at submit time and already lives in the state.
func (m *machine) stepInit(ctx context.Context) {
	m.st.StartedAt = time.Now()
	m.transition(ctx, PhaseSubmitting)
}

// stepSubmit invokes Start exactly once. A rejection is terminal: the remote
// is never polled and no result fetch happens for this run.
func (m *machine) stepSubmit(ctx context.Context) {
	handle, err := m.remote.Start(ctx, m.st.Request.Payload)
	if err != nil {
		if ctx.Err() != nil {
			m.fail(ctx, NewCancelledError("cancelled during submission", err))
			return
		}
		m.fail(ctx, NewSubmissionError("remote rejected submission", err))
		return
	}

	m.st.Handle = handle
	m.st.RetryCount = 0
	m.transition(ctx, PhasePolling)
}

// stepPoll performs one suspend-then-check cycle. Every status check is
// preceded by exactly one poll interval of cancellable suspension, the first
// one included, so polls land at interval, 2*interval, ... after submission.
// The budget is evaluated only after a real poll (poll-then-check); a poll
// that terminates the loop does not consume a retry.
func (m *machine) stepPoll(ctx context.Context) {
	if err := m.pause(ctx); err != nil {
		m.fail(ctx, NewCancelledError("cancelled during poll wait", err))
		return
	}

	status, err := m.remote.GetStatus(ctx, m.st.Handle)
	if err != nil {
		if ctx.Err() != nil {
			m.fail(ctx, NewCancelledError("cancelled during status check", err))
			return
		}
		m.fail(ctx, NewLookupError("status check failed", err))
		return
	}
	m.st.Status = status

	decision, cerr := Classify(status)
	if cerr != nil {
		var oe *OpError
		if !errors.As(cerr, &oe) {
			oe = NewClassificationError("status classification failed", cerr)
		}
		m.fail(ctx, oe)
		return
	}

	switch decision {
	case DecisionFetch:
		m.transition(ctx, PhaseFetching)
	case DecisionFail:
		m.fail(ctx, NewRemoteFailureError("remote reported operation failed", nil))
	case DecisionContinue:
		if m.st.RetryCount >= m.st.MaxRetries {
			m.transition(ctx, PhaseTimedOut)
			return
		}
		m.st.RetryCount++
		m.transition(ctx, PhasePolling)
	}
}

// stepFetch retrieves the result with a single attempt.
func (m *machine) stepFetch(ctx context.Context) {
	result, err := m.remote.GetResult(ctx, m.st.Handle)
	if err != nil {
		if ctx.Err() != nil {
			m.fail(ctx, NewCancelledError("cancelled during result fetch", err))
			return
		}
		m.fail(ctx, NewFetchError("result fetch failed", err))
		return
	}

	m.st.Result = result
	m.transition(ctx, PhaseDone)
}

// pause suspends for exactly one poll interval or until the context is done.
func (m *machine) pause(ctx context.Context) error {
	select {
	case <-time.After(m.interval):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail records the classified error and moves the run to FAILED.
func (m *machine) fail(ctx context.Context, opErr *OpError) {
	if opErr.Phase == "" {
		opErr.Phase = m.st.Phase
	}
	if opErr.Handle == "" {
		opErr.Handle = m.st.Handle
	}
	m.st.Failure = opErr
	m.transition(ctx, PhaseFailed)
}

// transition moves the state to the next phase and notifies the observer.
// Terminal phases stamp the completion time before observers see them.
func (m *machine) transition(ctx context.Context, to Phase) {
	from := m.st.Phase
	m.st.Phase = to
	if to.IsTerminal() && m.st.CompletedAt == nil {
		now := time.Now()
		m.st.CompletedAt = &now
	}

	if m.observer != nil {
		m.observer.OnTransition(ctx, Transition{
			RunID:      m.st.RunID,
			From:       from,
			To:         to,
			Status:     m.st.Status,
			Handle:     m.st.Handle,
			RetryCount: m.st.RetryCount,
			Failure:    m.st.Failure,
			At:         time.Now(),
		})
	}
}
