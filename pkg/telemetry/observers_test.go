package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/openlro/openlro/pkg/lro"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("Expected metrics, got %v", err)
	}
	return m
}

func TestMetricsObserver_SuccessfulRun(t *testing.T) {
	m := testMetrics(t)
	obs := MetricsObserver(m)
	ctx := context.Background()
	now := time.Now()

	transitions := []lro.Transition{
		{RunID: "r1", From: lro.PhaseInit, To: lro.PhaseSubmitting, At: now},
		{RunID: "r1", From: lro.PhaseSubmitting, To: lro.PhasePolling, Handle: "op-1", At: now},
		{RunID: "r1", From: lro.PhasePolling, To: lro.PhasePolling, Status: lro.StatusRunning, RetryCount: 1, At: now},
		{RunID: "r1", From: lro.PhasePolling, To: lro.PhaseFetching, Status: lro.StatusSucceeded, RetryCount: 1, At: now},
		{RunID: "r1", From: lro.PhaseFetching, To: lro.PhaseDone, RetryCount: 1, At: now.Add(100 * time.Millisecond)},
	}
	for _, tr := range transitions {
		obs.OnTransition(ctx, tr)
	}

	if got := testutil.ToFloat64(m.runsStarted); got != 1 {
		t.Errorf("Expected 1 run started, got %v", got)
	}
	if got := testutil.ToFloat64(m.runsCompleted.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(m.statusChecks); got != 2 {
		t.Errorf("Expected 2 status checks, got %v", got)
	}
	if got := testutil.ToFloat64(m.activeRuns); got != 0 {
		t.Errorf("Expected 0 active runs after completion, got %v", got)
	}
}

func TestMetricsObserver_FailureRecordsClass(t *testing.T) {
	m := testMetrics(t)
	obs := MetricsObserver(m)
	ctx := context.Background()
	now := time.Now()

	failure := lro.NewRemoteFailureError("operation reported FAILED", nil)
	transitions := []lro.Transition{
		{RunID: "r2", From: lro.PhaseInit, To: lro.PhaseSubmitting, At: now},
		{RunID: "r2", From: lro.PhaseSubmitting, To: lro.PhasePolling, Handle: "op-2", At: now},
		{RunID: "r2", From: lro.PhasePolling, To: lro.PhaseFailed, Status: lro.StatusFailed, Failure: failure, At: now},
	}
	for _, tr := range transitions {
		obs.OnTransition(ctx, tr)
	}

	if got := testutil.ToFloat64(m.runsCompleted.WithLabelValues("failed")); got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsByClass.WithLabelValues(string(lro.FailureRemote))); got != 1 {
		t.Errorf("Expected 1 remote failure recorded, got %v", got)
	}
}

func TestMetricsObserver_NilMetrics(t *testing.T) {
	if obs := MetricsObserver(nil); obs != nil {
		t.Error("Expected nil observer for nil metrics")
	}
}

func TestMetrics_DisabledIsNoOp(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Expected disabled metrics, got %v", err)
	}

	// None of these should panic on the no-op instance.
	m.RecordRunStarted()
	m.RecordRunCompleted("success", time.Second, 3)
	m.RecordStatusCheck()
	m.RecordPhaseTransition("POLLING", "POLLING")
	m.RecordRemoteCall("get_status", time.Millisecond)
	m.RecordRemoteError("get_status")
	m.RecordError("lookup")
	m.SetActiveRuns(1)
}

func TestEventObserver_TerminalEvents(t *testing.T) {
	events, err := NewEventPublisher(EventsConfig{Enabled: true, BufferSize: 16})
	if err != nil {
		t.Fatalf("Expected publisher, got %v", err)
	}

	received := make(chan Event, 16)
	events.Subscribe(func(e Event) { received <- e }, nil)

	obs := EventObserver(events)
	now := time.Now()
	obs.OnTransition(context.Background(), lro.Transition{
		RunID: "r3", From: lro.PhaseSubmitting, To: lro.PhasePolling, Handle: "op-3", At: now,
	})
	obs.OnTransition(context.Background(), lro.Transition{
		RunID: "r3", From: lro.PhaseFetching, To: lro.PhaseDone, RetryCount: 4, At: now,
	})

	// Subscribers are invoked on their own goroutines, so collect by count.
	seen := make(map[string]bool)
	deadline := time.After(2 * time.Second)
	for i := 0; i < 4; i++ {
		select {
		case e := <-received:
			seen[e.Type] = true
		case <-deadline:
			t.Fatalf("Timed out waiting for events, saw %v", seen)
		}
	}

	for _, want := range []string{EventTypeRunSubmitted, EventTypePhaseChanged, EventTypeRunCompleted} {
		if !seen[want] {
			t.Errorf("Expected event type %s", want)
		}
	}
}

func TestLogObserver_DoesNotPanic(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("Expected logger, got %v", err)
	}

	obs := LogObserver(logger)
	obs.OnTransition(context.Background(), lro.Transition{
		RunID: "r4", From: lro.PhasePolling, To: lro.PhaseTimedOut, RetryCount: 20, At: time.Now(),
	})
	obs.OnTransition(context.Background(), lro.Transition{
		RunID:   "r4",
		From:    lro.PhasePolling,
		To:      lro.PhaseFailed,
		Failure: lro.NewLookupError("status check failed", nil),
		At:      time.Now(),
	})
}

func TestFilterByLevel(t *testing.T) {
	filter := FilterByLevel(EventLevelWarning)

	if filter(Event{Level: EventLevelInfo}) {
		t.Error("Expected info event to be filtered out")
	}
	if !filter(Event{Level: EventLevelWarning}) {
		t.Error("Expected warning event to pass")
	}
	if !filter(Event{Level: EventLevelError}) {
		t.Error("Expected error event to pass")
	}
}

func TestFilterByType(t *testing.T) {
	filter := FilterByType(EventTypeRunTimedOut, EventTypeRunFailed)

	if filter(Event{Type: EventTypeRunSubmitted}) {
		t.Error("Expected submitted event to be filtered out")
	}
	if !filter(Event{Type: EventTypeRunTimedOut}) {
		t.Error("Expected timed out event to pass")
	}
}
