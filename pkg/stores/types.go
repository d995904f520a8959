package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunRecord is the persisted terminal outcome of one run.
type RunRecord struct {
	// ID is the orchestrator-side run identifier.
	ID string `json:"id"`

	// Payload is the submitted operation body.
	Payload string `json:"payload"`

	// Handle is the remote operation handle, empty if submission never
	// succeeded.
	Handle string `json:"handle,omitempty"`

	// Outcome classifies how the run ended (success, failed, timed_out,
	// cancelled).
	Outcome string `json:"outcome"`

	// FinalStatus is the last remote status observed before the run
	// resolved.
	FinalStatus string `json:"final_status,omitempty"`

	// RetryCount is the number of consumed retries.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the effective retry budget the run ran under.
	MaxRetries int `json:"max_retries"`

	// Result is the result payload as JSON text, present only on success.
	Result *string `json:"result,omitempty"`

	// Error is the failure text for failed and cancelled runs.
	Error *string `json:"error,omitempty"`

	// StartedAt is when the run entered submission.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run reached its terminal phase.
	CompletedAt time.Time `json:"completed_at"`

	// DurationMS is CompletedAt minus StartedAt in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// TransitionRecord is one persisted state-machine step of a run.
type TransitionRecord struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	FromPhase  string    `json:"from_phase"`
	ToPhase    string    `json:"to_phase"`
	Status     string    `json:"status,omitempty"`
	RetryCount int       `json:"retry_count"`
	Error      *string   `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store defines the interface for the run history persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	SaveRun(ctx context.Context, run *RunRecord, transitions []*TransitionRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)
	ListRunsByOutcome(ctx context.Context, outcome string, limit, offset int) ([]*RunRecord, error)
	CountRuns(ctx context.Context) (int64, error)
	DeleteRun(ctx context.Context, id string) error

	// Transition operations
	GetTransitions(ctx context.Context, runID string) ([]*TransitionRecord, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
