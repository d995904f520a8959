package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg: cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if dir := filepath.Dir(s.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// SaveRun persists a terminal run record together with its observed
// transitions in a single transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord, transitions []*TransitionRecord) error {
	runQuery := `
		INSERT INTO runs (
			id, payload, handle, outcome, final_status, retry_count, max_retries,
			result, error, started_at, completed_at, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	transitionQuery := `
		INSERT INTO run_transitions (run_id, from_phase, to_phase, status, retry_count, error, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, runQuery,
		run.ID,
		run.Payload,
		run.Handle,
		run.Outcome,
		run.FinalStatus,
		run.RetryCount,
		run.MaxRetries,
		run.Result,
		run.Error,
		run.StartedAt,
		run.CompletedAt,
		run.DurationMS,
		run.CreatedAt,
	)
	if err != nil {
		_ = s.RollbackTx(tx)
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, tr := range transitions {
		result, err := tx.ExecContext(ctx, transitionQuery,
			run.ID,
			tr.FromPhase,
			tr.ToPhase,
			tr.Status,
			tr.RetryCount,
			tr.Error,
			tr.OccurredAt,
		)
		if err != nil {
			_ = s.RollbackTx(tx)
			return fmt.Errorf("failed to save transition: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			_ = s.RollbackTx(tx)
			return fmt.Errorf("failed to get transition ID: %w", err)
		}
		tr.ID = id
		tr.RunID = run.ID
	}

	if err := s.CommitTx(tx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// GetRun retrieves a run record by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
		SELECT id, payload, handle, outcome, final_status, retry_count, max_retries,
			   result, error, started_at, completed_at, duration_ms, created_at
		FROM runs
		WHERE id = ?
	`

	run := &RunRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Payload,
		&run.Handle,
		&run.Outcome,
		&run.FinalStatus,
		&run.RetryCount,
		&run.MaxRetries,
		&run.Result,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
		&run.DurationMS,
		&run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns lists run records with pagination, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	query := `
		SELECT id, payload, handle, outcome, final_status, retry_count, max_retries,
			   result, error, started_at, completed_at, duration_ms, created_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	return s.queryRuns(ctx, query, limit, offset)
}

// ListRunsByOutcome lists run records with a given outcome, newest first
func (s *SQLiteStore) ListRunsByOutcome(ctx context.Context, outcome string, limit, offset int) ([]*RunRecord, error) {
	query := `
		SELECT id, payload, handle, outcome, final_status, retry_count, max_retries,
			   result, error, started_at, completed_at, duration_ms, created_at
		FROM runs
		WHERE outcome = ?
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	return s.queryRuns(ctx, query, outcome, limit, offset)
}

func (s *SQLiteStore) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*RunRecord{}
	for rows.Next() {
		run := &RunRecord{}
		err := rows.Scan(
			&run.ID,
			&run.Payload,
			&run.Handle,
			&run.Outcome,
			&run.FinalStatus,
			&run.RetryCount,
			&run.MaxRetries,
			&run.Result,
			&run.Error,
			&run.StartedAt,
			&run.CompletedAt,
			&run.DurationMS,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// CountRuns returns the total number of recorded runs
func (s *SQLiteStore) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// DeleteRun deletes a run record and its transitions by ID
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_transitions WHERE run_id = ?`, id); err != nil {
		_ = s.RollbackTx(tx)
		return fmt.Errorf("failed to delete transitions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		_ = s.RollbackTx(tx)
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		_ = s.RollbackTx(tx)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		_ = s.RollbackTx(tx)
		return fmt.Errorf("run not found: %s", id)
	}

	return s.CommitTx(tx)
}

// GetTransitions retrieves the recorded transitions of a run in order
func (s *SQLiteStore) GetTransitions(ctx context.Context, runID string) ([]*TransitionRecord, error) {
	query := `
		SELECT id, run_id, from_phase, to_phase, status, retry_count, error, occurred_at
		FROM run_transitions
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transitions: %w", err)
	}
	defer rows.Close()

	transitions := []*TransitionRecord{}
	for rows.Next() {
		tr := &TransitionRecord{}
		err := rows.Scan(
			&tr.ID,
			&tr.RunID,
			&tr.FromPhase,
			&tr.ToPhase,
			&tr.Status,
			&tr.RetryCount,
			&tr.Error,
			&tr.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return transitions, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
