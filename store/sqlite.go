package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cellsight/cellsight/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", connDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// connDSN forces immediate transactions so AppendStep takes the write lock at
// BEGIN instead of deadlocking on a read-to-write upgrade when two pooled
// connections race on a file-backed database. The busy timeout makes the
// second writer wait for the lock rather than fail with SQLITE_BUSY.
func connDSN(dsn string) string {
	params := "_txlock=immediate&_busy_timeout=5000"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			final_output TEXT,
			error_kind TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status_started ON runs(status, started_at)`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			step_type TEXT NOT NULL,
			payload TEXT,
			timestamp DATETIME NOT NULL,
			PRIMARY KEY (run_id, step_index),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun allocates a fresh run_id and inserts a Run in running status.
func (s *SQLiteStore) CreateRun(ctx context.Context, query string) (string, error) {
	runID := "run_" + uuid.New().String()[:8]
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, query, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, query, domain.RunStatusRunning, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// AppendStep assigns the next step_index for the run inside a transaction so
// the gapless-ordering invariant holds even with a shared connection pool.
func (s *SQLiteStore) AppendStep(ctx context.Context, runID string, stepType domain.StepType, payload json.RawMessage) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status domain.RunStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id = ?`, runID).Scan(&status)
	if err == sql.ErrNoRows {
		return 0, ErrUnknownRun
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read run: %w", err)
	}
	if status != domain.RunStatusRunning {
		return 0, ErrRunFinalized
	}

	var index int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(step_index) + 1, 0) FROM steps WHERE run_id = ?`, runID).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate step index: %w", err)
	}

	payloadStr := ""
	if payload != nil {
		payloadStr = string(payload)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO steps (run_id, step_index, step_type, payload, timestamp) VALUES (?, ?, ?, ?, ?)`,
		runID, index, stepType, payloadStr, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert step: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit step: %w", err)
	}
	return index, nil
}

// FinalizeRun transitions the run to a terminal status exactly once.
func (s *SQLiteStore) FinalizeRun(ctx context.Context, runID string, status domain.RunStatus, finalOutput string, errorKind domain.ErrorKind) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, final_output = ?, error_kind = ?
		 WHERE run_id = ? AND status = ?`,
		status, time.Now(), nullString(finalOutput), nullString(string(errorKind)),
		runID, domain.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	if affected == 0 {
		var existing string
		err := s.db.QueryRowContext(ctx, `SELECT run_id FROM runs WHERE run_id = ?`, runID).Scan(&existing)
		if err == sql.ErrNoRows {
			return ErrUnknownRun
		}
		if err != nil {
			return fmt.Errorf("failed to read run: %w", err)
		}
		return ErrRunFinalized
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	var endedAt sql.NullTime
	var finalOutput, errorKind sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, query, status, started_at, ended_at, final_output, error_kind
		 FROM runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &run.Query, &run.Status, &run.StartedAt, &endedAt, &finalOutput, &errorKind)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownRun
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if finalOutput.Valid {
		run.FinalOutput = finalOutput.String
	}
	if errorKind.Valid {
		run.ErrorKind = domain.ErrorKind(errorKind.String)
	}
	return &run, nil
}

// GetSteps retrieves the steps of a run ordered by step_index.
func (s *SQLiteStore) GetSteps(ctx context.Context, runID string) ([]domain.Step, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, step_index, step_type, payload, timestamp
		 FROM steps WHERE run_id = ? ORDER BY step_index ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		var step domain.Step
		var payload sql.NullString
		if err := rows.Scan(&step.RunID, &step.StepIndex, &step.Type, &payload, &step.Timestamp); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			step.Payload = json.RawMessage(payload.String)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// ListRuns returns runs ordered by started_at descending.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `SELECT run_id, query, status, started_at, ended_at, final_output, error_kind FROM runs`
	var clauses []string
	var args []interface{}

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Range != nil {
		if !filter.Range.From.IsZero() {
			clauses = append(clauses, "started_at >= ?")
			args = append(args, filter.Range.From)
		}
		if !filter.Range.To.IsZero() {
			clauses = append(clauses, "started_at <= ?")
			args = append(args, filter.Range.To)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		var endedAt sql.NullTime
		var finalOutput, errorKind sql.NullString
		if err := rows.Scan(&run.RunID, &run.Query, &run.Status, &run.StartedAt, &endedAt, &finalOutput, &errorKind); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		if finalOutput.Valid {
			run.FinalOutput = finalOutput.String
		}
		if errorKind.Valid {
			run.ErrorKind = domain.ErrorKind(errorKind.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ComputeMetrics aggregates run history. Pure read side; success/failure rates
// count only finalized runs.
func (s *SQLiteStore) ComputeMetrics(ctx context.Context, rng *TimeRange) (*domain.MetricsSnapshot, error) {
	where := ""
	var args []interface{}
	if rng != nil {
		var clauses []string
		if !rng.From.IsZero() {
			clauses = append(clauses, "started_at >= ?")
			args = append(args, rng.From)
		}
		if !rng.To.IsZero() {
			clauses = append(clauses, "started_at <= ?")
			args = append(args, rng.To)
		}
		if len(clauses) > 0 {
			where = " WHERE " + strings.Join(clauses, " AND ")
		}
	}

	snapshot := &domain.MetricsSnapshot{ErrorCounts: make(map[domain.ErrorKind]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM runs`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute metrics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.RunStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		snapshot.TotalRuns += count
		switch status {
		case domain.RunStatusRunning:
			snapshot.InProgress += count
		case domain.RunStatusSuccess:
			snapshot.Succeeded += count
		case domain.RunStatusFailed:
			snapshot.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if finalized := snapshot.Succeeded + snapshot.Failed; finalized > 0 {
		snapshot.SuccessRate = float64(snapshot.Succeeded) / float64(finalized)
	}

	errRows, err := s.db.QueryContext(ctx,
		`SELECT error_kind, COUNT(*) FROM runs`+whereAnd(where)+`error_kind IS NOT NULL GROUP BY error_kind`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute error counts: %w", err)
	}
	defer errRows.Close()
	for errRows.Next() {
		var kind domain.ErrorKind
		var count int
		if err := errRows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		snapshot.ErrorCounts[kind] = count
	}
	if err := errRows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG((julianday(ended_at) - julianday(started_at)) * 86400000.0)
		 FROM runs`+whereAnd(where)+`ended_at IS NOT NULL`, args...).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average duration: %w", err)
	}
	if avg.Valid {
		snapshot.AvgDurationMs = avg.Float64
	}

	return snapshot, nil
}

func whereAnd(where string) string {
	if where == "" {
		return " WHERE "
	}
	return where + " AND "
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
