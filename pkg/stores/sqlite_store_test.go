package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a migrated SQLite store backed by a temp file
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "runs.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// sampleRun builds a complete run record for tests
func sampleRun(id, outcome string, startedAt time.Time) *RunRecord {
	completedAt := startedAt.Add(10 * time.Second)
	result := `{"row_count":3}`
	return &RunRecord{
		ID:          id,
		Payload:     "SELECT * FROM users",
		Handle:      "handle-" + id,
		Outcome:     outcome,
		FinalStatus: "SUCCEEDED",
		RetryCount:  4,
		MaxRetries:  20,
		Result:      &result,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMS:  completedAt.Sub(startedAt).Milliseconds(),
		CreatedAt:   time.Now(),
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "runs.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestNewSQLiteStoreRequiresPath tests config validation
func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(Config{})
	if err == nil {
		t.Fatal("expected error for empty path, got none")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Check that tables exist by querying them
	tables := []string{"runs", "run_transitions"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// Re-running migrations is a no-op
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("re-running migrations failed: %v", err)
	}
}

// TestSaveAndGetRun tests the round trip of a run with its transitions
func TestSaveAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	run := sampleRun("run-001", "success", now)
	transitions := []*TransitionRecord{
		{FromPhase: "INIT", ToPhase: "SUBMITTING", OccurredAt: now},
		{FromPhase: "SUBMITTING", ToPhase: "POLLING", OccurredAt: now.Add(time.Second)},
		{FromPhase: "POLLING", ToPhase: "FETCHING", Status: "SUCCEEDED", RetryCount: 4, OccurredAt: now.Add(9 * time.Second)},
		{FromPhase: "FETCHING", ToPhase: "DONE", Status: "SUCCEEDED", RetryCount: 4, OccurredAt: now.Add(10 * time.Second)},
	}

	if err := store.SaveRun(ctx, run, transitions); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if retrieved.ID != run.ID {
		t.Errorf("expected ID %s, got %s", run.ID, retrieved.ID)
	}
	if retrieved.Payload != run.Payload {
		t.Errorf("expected payload %s, got %s", run.Payload, retrieved.Payload)
	}
	if retrieved.Handle != run.Handle {
		t.Errorf("expected handle %s, got %s", run.Handle, retrieved.Handle)
	}
	if retrieved.Outcome != "success" {
		t.Errorf("expected outcome success, got %s", retrieved.Outcome)
	}
	if retrieved.FinalStatus != "SUCCEEDED" {
		t.Errorf("expected final status SUCCEEDED, got %s", retrieved.FinalStatus)
	}
	if retrieved.RetryCount != 4 {
		t.Errorf("expected retry count 4, got %d", retrieved.RetryCount)
	}
	if retrieved.MaxRetries != 20 {
		t.Errorf("expected max retries 20, got %d", retrieved.MaxRetries)
	}
	if retrieved.Result == nil || *retrieved.Result != `{"row_count":3}` {
		t.Errorf("expected result to round trip, got %v", retrieved.Result)
	}
	if retrieved.Error != nil {
		t.Errorf("expected no error text, got %v", *retrieved.Error)
	}
	if retrieved.DurationMS != 10000 {
		t.Errorf("expected duration 10000ms, got %d", retrieved.DurationMS)
	}
	if retrieved.StartedAt.IsZero() {
		t.Error("expected started_at to be set")
	}

	stored, err := store.GetTransitions(ctx, "run-001")
	if err != nil {
		t.Fatalf("failed to get transitions: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("expected 4 transitions, got %d", len(stored))
	}
	if stored[0].FromPhase != "INIT" || stored[0].ToPhase != "SUBMITTING" {
		t.Errorf("expected first transition INIT->SUBMITTING, got %s->%s", stored[0].FromPhase, stored[0].ToPhase)
	}
	if stored[3].ToPhase != "DONE" {
		t.Errorf("expected last transition into DONE, got %s", stored[3].ToPhase)
	}
	if stored[2].Status != "SUCCEEDED" {
		t.Errorf("expected stored status SUCCEEDED, got %s", stored[2].Status)
	}
	for i, tr := range stored {
		if tr.RunID != "run-001" {
			t.Errorf("transition %d has run ID %s", i, tr.RunID)
		}
		if tr.ID == 0 {
			t.Errorf("transition %d has no assigned ID", i)
		}
	}
}

// TestSaveRunFailureFields tests persisting a failed run
func TestSaveRunFailureFields(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	errText := "remote operation reported FAILED"
	run := sampleRun("run-002", "failed", now)
	run.Result = nil
	run.FinalStatus = "FAILED"
	run.Error = &errText

	if err := store.SaveRun(ctx, run, nil); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	retrieved, err := store.GetRun(ctx, "run-002")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if retrieved.Result != nil {
		t.Errorf("expected nil result, got %v", *retrieved.Result)
	}
	if retrieved.Error == nil || *retrieved.Error != errText {
		t.Errorf("expected error %q, got %v", errText, retrieved.Error)
	}

	transitions, err := store.GetTransitions(ctx, "run-002")
	if err != nil {
		t.Fatalf("failed to get transitions: %v", err)
	}
	if len(transitions) != 0 {
		t.Errorf("expected no transitions, got %d", len(transitions))
	}
}

// TestGetRunNotFound tests the missing-run error
func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.GetRun(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for unknown run, got none")
	}
}

// TestSaveRunDuplicate tests that a run ID cannot be saved twice
func TestSaveRunDuplicate(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	run := sampleRun("run-dup", "success", time.Now())

	if err := store.SaveRun(ctx, run, nil); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if err := store.SaveRun(ctx, run, nil); err == nil {
		t.Fatal("expected error for duplicate run ID, got none")
	}
}

// TestListRuns tests pagination and ordering
func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour)

	ids := []string{"run-a", "run-b", "run-c"}
	for i, id := range ids {
		run := sampleRun(id, "success", base.Add(time.Duration(i)*time.Hour))
		if err := store.SaveRun(ctx, run, nil); err != nil {
			t.Fatalf("failed to save run %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	// Newest first
	if runs[0].ID != "run-c" {
		t.Errorf("expected run-c first, got %s", runs[0].ID)
	}
	if runs[2].ID != "run-a" {
		t.Errorf("expected run-a last, got %s", runs[2].ID)
	}

	// Pagination
	page, err := store.ListRuns(ctx, 1, 1)
	if err != nil {
		t.Fatalf("failed to list runs with offset: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 run, got %d", len(page))
	}
	if page[0].ID != "run-b" {
		t.Errorf("expected run-b, got %s", page[0].ID)
	}
}

// TestListRunsByOutcome tests outcome filtering
func TestListRunsByOutcome(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	success := sampleRun("run-ok", "success", now.Add(-time.Minute))
	failed := sampleRun("run-bad", "failed", now)
	failed.FinalStatus = "FAILED"
	failed.Result = nil

	if err := store.SaveRun(ctx, success, nil); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if err := store.SaveRun(ctx, failed, nil); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	runs, err := store.ListRunsByOutcome(ctx, "failed", 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs by outcome: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 failed run, got %d", len(runs))
	}
	if runs[0].ID != "run-bad" {
		t.Errorf("expected run-bad, got %s", runs[0].ID)
	}

	empty, err := store.ListRunsByOutcome(ctx, "timed_out", 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs by outcome: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no timed out runs, got %d", len(empty))
	}
}

// TestCountRuns tests the run counter
func TestCountRuns(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	count, err := store.CountRuns(ctx)
	if err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 runs, got %d", count)
	}

	for i, id := range []string{"r1", "r2"} {
		run := sampleRun(id, "success", time.Now().Add(time.Duration(i)*time.Second))
		if err := store.SaveRun(ctx, run, nil); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	count, err = store.CountRuns(ctx)
	if err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 runs, got %d", count)
	}
}

// TestDeleteRun tests deleting a run and its transitions
func TestDeleteRun(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	run := sampleRun("run-del", "success", now)
	transitions := []*TransitionRecord{
		{FromPhase: "INIT", ToPhase: "SUBMITTING", OccurredAt: now},
		{FromPhase: "SUBMITTING", ToPhase: "POLLING", OccurredAt: now},
	}
	if err := store.SaveRun(ctx, run, transitions); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	if err := store.DeleteRun(ctx, "run-del"); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	if _, err := store.GetRun(ctx, "run-del"); err == nil {
		t.Error("expected error when getting deleted run")
	}

	stored, err := store.GetTransitions(ctx, "run-del")
	if err != nil {
		t.Fatalf("failed to get transitions: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected transitions deleted with run, got %d", len(stored))
	}

	if err := store.DeleteRun(ctx, "run-del"); err == nil {
		t.Error("expected error when deleting missing run")
	}
}
