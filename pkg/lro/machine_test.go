package lro

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

// Mock remote for testing. GetStatus walks statusSeq one entry per call and
// repeats the last entry once the sequence is exhausted.
type mockRemote struct {
	mu        sync.Mutex
	handle    OperationHandle
	statusSeq []OperationStatus
	result    json.RawMessage

	startErr  error
	statusErr error
	resultErr error

	startCalls  int
	statusCalls int
	resultCalls int

	statusCalled chan int
}

func newMockRemote(seq ...OperationStatus) *mockRemote {
	return &mockRemote{
		handle:       "op-0001",
		statusSeq:    seq,
		result:       json.RawMessage(`{"rows":3}`),
		statusCalled: make(chan int, 128),
	}
}

func (m *mockRemote) Start(_ context.Context, _ string) (OperationHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if m.startErr != nil {
		return "", m.startErr
	}
	return m.handle, nil
}

func (m *mockRemote) GetStatus(_ context.Context, _ OperationHandle) (OperationStatus, error) {
	m.mu.Lock()
	m.statusCalls++
	call := m.statusCalls
	err := m.statusErr
	var status OperationStatus
	if len(m.statusSeq) > 0 {
		idx := call - 1
		if idx >= len(m.statusSeq) {
			idx = len(m.statusSeq) - 1
		}
		status = m.statusSeq[idx]
	} else {
		status = StatusRunning
	}
	m.mu.Unlock()

	select {
	case m.statusCalled <- call:
	default:
	}

	if err != nil {
		return "", err
	}
	return status, nil
}

func (m *mockRemote) GetResult(_ context.Context, _ OperationHandle) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultCalls++
	if m.resultErr != nil {
		return nil, m.resultErr
	}
	return m.result, nil
}

func (m *mockRemote) calls() (start, status, result int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls, m.statusCalls, m.resultCalls
}

// Observer that records transitions for assertions.
type recordingObserver struct {
	mu          sync.Mutex
	transitions []Transition
}

func (o *recordingObserver) OnTransition(_ context.Context, t Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, t)
}

func (o *recordingObserver) all() []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Transition{}, o.transitions...)
}

const testInterval = 2 * time.Millisecond

func runMachine(t *testing.T, remote Remote, maxRetries int, observer Observer) (*Outcome, *State) {
	t.Helper()
	st := &State{
		RunID:      "run-test",
		Request:    OperationRequest{Payload: "SELECT 1"},
		Phase:      PhaseInit,
		MaxRetries: maxRetries,
	}
	m := newMachine(remote, testInterval, observer, st)
	out := m.run(context.Background())
	if out == nil {
		t.Fatal("Expected non-nil outcome")
	}
	return out, st
}

func TestMachine_SuccessAfterPolls(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusRunning, StatusSucceeded)

	out, st := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s", out.Kind)
	}
	if out.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", out.RetryCount)
	}
	if string(out.Result) != `{"rows":3}` {
		t.Errorf("Expected result payload, got %s", string(out.Result))
	}
	if st.Phase != PhaseDone {
		t.Errorf("Expected phase DONE, got %s", st.Phase)
	}

	_, status, result := remote.calls()
	if status != 3 {
		t.Errorf("Expected 3 status checks, got %d", status)
	}
	if result != 1 {
		t.Errorf("Expected 1 result fetch, got %d", result)
	}
}

// Mirrors the default configuration scenario: a remote that stays RUNNING for
// four polls and succeeds on the fifth resolves with retry count 4.
func TestMachine_DefaultScenarioRetryCount(t *testing.T) {
	remote := newMockRemote(
		StatusRunning, StatusRunning, StatusRunning, StatusRunning, StatusSucceeded)

	out, _ := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s", out.Kind)
	}
	if out.RetryCount != 4 {
		t.Errorf("Expected retry count 4, got %d", out.RetryCount)
	}
	_, status, _ := remote.calls()
	if status != 5 {
		t.Errorf("Expected 5 status checks, got %d", status)
	}
}

func TestMachine_TimeoutExhaustsBudget(t *testing.T) {
	remote := newMockRemote(StatusRunning)

	out, st := runMachine(t, remote, 3, nil)

	if out.Kind != OutcomeTimedOut {
		t.Fatalf("Expected timed_out outcome, got %s", out.Kind)
	}
	if out.RetryCount != 3 {
		t.Errorf("Expected retry count to equal budget 3, got %d", out.RetryCount)
	}
	if st.Phase != PhaseTimedOut {
		t.Errorf("Expected phase TIMED_OUT, got %s", st.Phase)
	}

	_, status, result := remote.calls()
	if status != 4 {
		t.Errorf("Expected 4 status checks (initial poll plus one per retry), got %d", status)
	}
	if result != 0 {
		t.Errorf("Expected no result fetch on timeout, got %d", result)
	}
}

func TestMachine_ZeroRetryBudget(t *testing.T) {
	remote := newMockRemote(StatusRunning)

	out, _ := runMachine(t, remote, 0, nil)

	if out.Kind != OutcomeTimedOut {
		t.Fatalf("Expected timed_out outcome, got %s", out.Kind)
	}
	if out.RetryCount != 0 {
		t.Errorf("Expected retry count 0, got %d", out.RetryCount)
	}
	_, status, _ := remote.calls()
	if status != 1 {
		t.Errorf("Expected exactly one status check before timing out, got %d", status)
	}
}

func TestMachine_PendingCountsAsActive(t *testing.T) {
	remote := newMockRemote(StatusPending, StatusPending, StatusSucceeded)

	out, _ := runMachine(t, remote, 5, nil)

	if out.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s", out.Kind)
	}
	if out.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", out.RetryCount)
	}
}

func TestMachine_RemoteReportedFailure(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusFailed)

	out, _ := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", out.Kind)
	}
	if out.Failure == nil {
		t.Fatal("Expected failure detail on failed outcome")
	}
	if !IsRemoteFailure(out.Failure) {
		t.Errorf("Expected remote failure class, got %s", out.Failure.Class)
	}

	_, status, result := remote.calls()
	if status != 2 {
		t.Errorf("Expected polling to stop at FAILED, got %d status checks", status)
	}
	if result != 0 {
		t.Errorf("Expected no result fetch after remote failure, got %d", result)
	}
}

func TestMachine_SubmissionRejected(t *testing.T) {
	remote := newMockRemote()
	remote.startErr = fmt.Errorf("quota exceeded")

	out, _ := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", out.Kind)
	}
	if !IsSubmission(out.Failure) {
		t.Errorf("Expected submission failure class, got %s", out.Failure.Class)
	}
	if out.Failure.Err == nil {
		t.Error("Expected underlying error to be preserved")
	}

	_, status, result := remote.calls()
	if status != 0 {
		t.Errorf("Expected no status checks after rejected submission, got %d", status)
	}
	if result != 0 {
		t.Errorf("Expected no result fetch after rejected submission, got %d", result)
	}
}

func TestMachine_UnknownStatusFailsFast(t *testing.T) {
	remote := newMockRemote(OperationStatus("MYSTERY"))

	out, st := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", out.Kind)
	}
	if !IsClassification(out.Failure) {
		t.Errorf("Expected classification failure class, got %s", out.Failure.Class)
	}
	if st.RetryCount != 0 {
		t.Errorf("Expected no retry budget consumed, got %d", st.RetryCount)
	}
	_, status, _ := remote.calls()
	if status != 1 {
		t.Errorf("Expected exactly one status check, got %d", status)
	}
}

func TestMachine_StatusCheckError(t *testing.T) {
	remote := newMockRemote()
	remote.statusErr = fmt.Errorf("no such operation")

	out, _ := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", out.Kind)
	}
	if !IsLookup(out.Failure) {
		t.Errorf("Expected lookup failure class, got %s", out.Failure.Class)
	}
}

func TestMachine_FetchError(t *testing.T) {
	remote := newMockRemote(StatusSucceeded)
	remote.resultErr = fmt.Errorf("result expired")

	out, _ := runMachine(t, remote, 20, nil)

	if out.Kind != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", out.Kind)
	}
	if !IsFetch(out.Failure) {
		t.Errorf("Expected fetch failure class, got %s", out.Failure.Class)
	}

	_, _, result := remote.calls()
	if result != 1 {
		t.Errorf("Expected a single fetch attempt, got %d", result)
	}
}

func TestMachine_TransitionsObserved(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusSucceeded)
	observer := &recordingObserver{}

	out, _ := runMachine(t, remote, 20, observer)
	if out.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s", out.Kind)
	}

	got := observer.all()
	want := []struct {
		from, to Phase
	}{
		{PhaseInit, PhaseSubmitting},
		{PhaseSubmitting, PhasePolling},
		{PhasePolling, PhasePolling},
		{PhasePolling, PhaseFetching},
		{PhaseFetching, PhaseDone},
	}

	if len(got) != len(want) {
		t.Fatalf("Expected %d transitions, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].From != w.from || got[i].To != w.to {
			t.Errorf("Transition %d: expected %s->%s, got %s->%s",
				i, w.from, w.to, got[i].From, got[i].To)
		}
	}

	// The self-transition carries the incremented counter.
	if got[2].RetryCount != 1 {
		t.Errorf("Expected retry count 1 on the polling self-transition, got %d", got[2].RetryCount)
	}
}

func TestMachine_CancelledContextBeforeSubmission(t *testing.T) {
	remote := newMockRemote(StatusRunning)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := &State{
		RunID:      "run-cancelled",
		Request:    OperationRequest{Payload: "SELECT 1"},
		Phase:      PhaseInit,
		MaxRetries: 5,
	}
	m := newMachine(remote, testInterval, nil, st)
	out := m.run(ctx)

	if out.Kind != OutcomeCancelled {
		t.Fatalf("Expected cancelled outcome, got %s", out.Kind)
	}
	if !IsCancelled(out.Failure) {
		t.Errorf("Expected cancelled failure class, got %v", out.Failure)
	}

	start, status, result := remote.calls()
	if start != 0 || status != 0 || result != 0 {
		t.Errorf("Expected no remote calls, got start=%d status=%d result=%d",
			start, status, result)
	}
}

func TestMachine_TimeoutKeepsLastObservedStatus(t *testing.T) {
	remote := newMockRemote(StatusPending, StatusRunning)

	_, st := runMachine(t, remote, 1, nil)

	if st.Phase != PhaseTimedOut {
		t.Fatalf("Expected phase TIMED_OUT, got %s", st.Phase)
	}
	if st.Status != StatusRunning {
		t.Errorf("Expected last observed status RUNNING, got %s", st.Status)
	}
	if st.CompletedAt == nil {
		t.Error("Expected completion timestamp on terminal state")
	}
}
