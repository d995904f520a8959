package lro

import (
	"context"
	"testing"
	"time"
)

func intPtr(n int) *int {
	return &n
}

func newTestRunner(t *testing.T, remote Remote, opts Options) *Runner {
	t.Helper()
	if opts.PollInterval == 0 {
		opts.PollInterval = testInterval
	}
	r, err := NewRunner(remote, opts)
	if err != nil {
		t.Fatalf("Expected runner, got error: %v", err)
	}
	return r
}

func TestNewRunner_Validation(t *testing.T) {
	remote := newMockRemote(StatusSucceeded)

	if _, err := NewRunner(nil, Options{PollInterval: time.Second}); err == nil {
		t.Error("Expected error for nil remote, got nil")
	}
	if _, err := NewRunner(remote, Options{PollInterval: 0}); err == nil {
		t.Error("Expected error for zero poll interval, got nil")
	}
	if _, err := NewRunner(remote, Options{PollInterval: -time.Second}); err == nil {
		t.Error("Expected error for negative poll interval, got nil")
	}
	if _, err := NewRunner(remote, Options{PollInterval: time.Second, MaxRetries: -1}); err == nil {
		t.Error("Expected error for negative max retries, got nil")
	}
	if _, err := NewRunner(remote, Options{PollInterval: time.Second, MaxConcurrent: -1}); err == nil {
		t.Error("Expected error for negative max concurrent, got nil")
	}
}

func TestRunner_SubmitAndAwait(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 20})

	runID, err := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})
	if err != nil {
		t.Fatalf("Expected submit to succeed, got %v", err)
	}
	if runID == "" {
		t.Fatal("Expected non-empty run ID")
	}

	out, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected await to succeed, got %v", err)
	}
	if out.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s", out.Kind)
	}
	if out.RunID != runID {
		t.Errorf("Expected outcome run ID %s, got %s", runID, out.RunID)
	}
	if out.Handle != "op-0001" {
		t.Errorf("Expected handle op-0001, got %s", out.Handle)
	}
}

func TestRunner_AwaitIdempotent(t *testing.T) {
	remote := newMockRemote(StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 20})

	runID, err := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})
	if err != nil {
		t.Fatalf("Expected submit to succeed, got %v", err)
	}

	first, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected first await to succeed, got %v", err)
	}
	start, status, result := remote.calls()

	second, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected second await to succeed, got %v", err)
	}
	if second != first {
		t.Error("Expected the identical memoized outcome on re-await")
	}

	start2, status2, result2 := remote.calls()
	if start2 != start || status2 != status || result2 != result {
		t.Errorf("Expected no remote calls on re-await, got start %d->%d status %d->%d result %d->%d",
			start, start2, status, status2, result, result2)
	}
}

func TestRunner_CancelDuringSuspension(t *testing.T) {
	remote := newMockRemote(StatusRunning)
	runner := newTestRunner(t, remote, Options{
		PollInterval: 25 * time.Millisecond,
		MaxRetries:   100,
	})

	runID, err := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})
	if err != nil {
		t.Fatalf("Expected submit to succeed, got %v", err)
	}

	// Wait for the third status check, then cancel inside the following
	// suspension.
	for i := 0; i < 3; i++ {
		select {
		case <-remote.statusCalled:
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for status checks")
		}
	}
	if err := runner.Cancel(runID); err != nil {
		t.Fatalf("Expected cancel to succeed, got %v", err)
	}

	out, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected await to succeed, got %v", err)
	}
	if out.Kind != OutcomeCancelled {
		t.Fatalf("Expected cancelled outcome, got %s", out.Kind)
	}
	if !IsCancelled(out.Failure) {
		t.Errorf("Expected cancelled failure class, got %v", out.Failure)
	}

	// No further polls may happen once the cancellation was observed.
	_, after, _ := remote.calls()
	time.Sleep(80 * time.Millisecond)
	_, later, _ := remote.calls()
	if later != after {
		t.Errorf("Expected no status checks after cancellation, got %d -> %d", after, later)
	}
	if after != 3 {
		t.Errorf("Expected exactly 3 status checks before cancellation, got %d", after)
	}
}

func TestRunner_CancelIdempotent(t *testing.T) {
	remote := newMockRemote(StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 5})

	runID, _ := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})
	out, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected await to succeed, got %v", err)
	}
	if out.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s", out.Kind)
	}

	// Cancelling a finished run changes nothing.
	if err := runner.Cancel(runID); err != nil {
		t.Errorf("Expected cancel of finished run to be a no-op, got %v", err)
	}
	again, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected await to succeed, got %v", err)
	}
	if again.Kind != OutcomeSuccess {
		t.Errorf("Expected outcome unchanged after late cancel, got %s", again.Kind)
	}
}

func TestRunner_AwaitContextExpiry(t *testing.T) {
	remote := newMockRemote(StatusRunning)
	runner := newTestRunner(t, remote, Options{
		PollInterval: 50 * time.Millisecond,
		MaxRetries:   100,
	})

	runID, _ := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := runner.Await(ctx, runID); err == nil {
		t.Fatal("Expected await to fail when its context expires, got nil")
	}

	// The run is undisturbed; cancelling it still resolves an outcome.
	if err := runner.Cancel(runID); err != nil {
		t.Fatalf("Expected cancel to succeed, got %v", err)
	}
	out, err := runner.Await(context.Background(), runID)
	if err != nil {
		t.Fatalf("Expected await after cancel to succeed, got %v", err)
	}
	if out.Kind != OutcomeCancelled {
		t.Errorf("Expected cancelled outcome, got %s", out.Kind)
	}
}

func TestRunner_ExecuteCancelsRunOnContextExpiry(t *testing.T) {
	remote := newMockRemote(StatusRunning)
	runner := newTestRunner(t, remote, Options{
		PollInterval: 20 * time.Millisecond,
		MaxRetries:   1000,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	out, err := runner.Execute(ctx, OperationRequest{Payload: "SELECT 1"})
	if err != nil {
		t.Fatalf("Expected execute to resolve the cancelled run, got %v", err)
	}
	if out.Kind != OutcomeCancelled {
		t.Fatalf("Expected cancelled outcome, got %s", out.Kind)
	}
	if !IsCancelled(out.Failure) {
		t.Errorf("Expected cancelled failure class, got %v", out.Failure)
	}

	// The cancellation stops polling for good.
	_, after, _ := remote.calls()
	time.Sleep(60 * time.Millisecond)
	_, later, _ := remote.calls()
	if later != after {
		t.Errorf("Expected no status checks after cancellation, got %d -> %d", after, later)
	}
}

func TestRunner_MaxRetriesOverride(t *testing.T) {
	remote := newMockRemote(StatusRunning)
	runner := newTestRunner(t, remote, Options{MaxRetries: 50})

	out, err := runner.Execute(context.Background(), OperationRequest{
		Payload:    "SELECT 1",
		MaxRetries: intPtr(1),
	})
	if err != nil {
		t.Fatalf("Expected execute to resolve, got %v", err)
	}
	if out.Kind != OutcomeTimedOut {
		t.Fatalf("Expected timed_out outcome, got %s", out.Kind)
	}
	if out.RetryCount != 1 {
		t.Errorf("Expected retry count 1 from the override, got %d", out.RetryCount)
	}
	_, status, _ := remote.calls()
	if status != 2 {
		t.Errorf("Expected 2 status checks under override budget 1, got %d", status)
	}
}

func TestRunner_NegativeOverrideRejected(t *testing.T) {
	remote := newMockRemote(StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 5})

	_, err := runner.Submit(context.Background(), OperationRequest{
		Payload:    "SELECT 1",
		MaxRetries: intPtr(-2),
	})
	if err == nil {
		t.Fatal("Expected error for negative override, got nil")
	}
	if !IsSubmission(err) {
		t.Errorf("Expected submission failure class, got %v", err)
	}

	start, status, result := remote.calls()
	if start != 0 || status != 0 || result != 0 {
		t.Errorf("Expected no remote calls, got start=%d status=%d result=%d",
			start, status, result)
	}
}

func TestRunner_UnknownRunID(t *testing.T) {
	remote := newMockRemote(StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 5})

	if _, err := runner.Await(context.Background(), "missing"); err == nil {
		t.Error("Expected await of unknown run to fail, got nil")
	}
	if err := runner.Cancel("missing"); err == nil {
		t.Error("Expected cancel of unknown run to fail, got nil")
	}
	if _, err := runner.Snapshot("missing"); err == nil {
		t.Error("Expected snapshot of unknown run to fail, got nil")
	}
}

func TestRunner_ConcurrentRunsIndependent(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 20})

	const n = 8
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})
		if err != nil {
			t.Fatalf("Expected submit %d to succeed, got %v", i, err)
		}
		ids = append(ids, id)
	}

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("Expected unique run IDs, got duplicate %s", id)
		}
		seen[id] = true

		out, err := runner.Await(context.Background(), id)
		if err != nil {
			t.Fatalf("Expected await of %s to succeed, got %v", id, err)
		}
		if out.Kind != OutcomeSuccess {
			t.Errorf("Expected success outcome for %s, got %s", id, out.Kind)
		}
	}

	start, _, result := remote.calls()
	if start != n {
		t.Errorf("Expected %d submissions, got %d", n, start)
	}
	if result != n {
		t.Errorf("Expected %d result fetches, got %d", n, result)
	}
}

func TestRunner_MaxConcurrentStillCompletes(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 20, MaxConcurrent: 2})

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := runner.Submit(context.Background(), OperationRequest{Payload: "SELECT 1"})
		if err != nil {
			t.Fatalf("Expected submit to succeed, got %v", err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		out, err := runner.Await(context.Background(), id)
		if err != nil {
			t.Fatalf("Expected await to succeed, got %v", err)
		}
		if out.Kind != OutcomeSuccess {
			t.Errorf("Expected success outcome, got %s", out.Kind)
		}
	}
}

func TestRunner_SnapshotTracksRun(t *testing.T) {
	remote := newMockRemote(StatusRunning, StatusSucceeded)
	runner := newTestRunner(t, remote, Options{MaxRetries: 20})

	runID, _ := runner.Submit(context.Background(), OperationRequest{
		Payload: "SELECT 1",
		Labels:  map[string]string{"team": "analytics"},
	})

	if _, err := runner.Await(context.Background(), runID); err != nil {
		t.Fatalf("Expected await to succeed, got %v", err)
	}

	st, err := runner.Snapshot(runID)
	if err != nil {
		t.Fatalf("Expected snapshot, got %v", err)
	}
	if st.Phase != PhaseDone {
		t.Errorf("Expected snapshot phase DONE, got %s", st.Phase)
	}
	if st.Handle != "op-0001" {
		t.Errorf("Expected snapshot handle op-0001, got %s", st.Handle)
	}
	if st.Request.Labels["team"] != "analytics" {
		t.Errorf("Expected labels preserved, got %v", st.Request.Labels)
	}
	if st.Status != StatusSucceeded {
		t.Errorf("Expected last status SUCCEEDED, got %s", st.Status)
	}
}
