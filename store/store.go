// Package store defines the trace storage interface and implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cellsight/cellsight/domain"
)

// ErrUnknownRun is returned when a run_id does not exist.
var ErrUnknownRun = errors.New("unknown run")

// ErrRunFinalized is returned when a write targets a run that already
// reached a terminal status. Double-finalize is a caller bug and must surface.
var ErrRunFinalized = errors.New("run already finalized")

// TimeRange bounds a query by started_at. Zero fields are open ends.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// RunFilter provides filtering options for ListRuns.
type RunFilter struct {
	Status domain.RunStatus
	Range  *TimeRange
	Limit  int
}

// Store is the durable, queryable log of runs and steps. Writer operations
// are safe under concurrent calls for different run_ids; the caller guarantees
// a single writer per run.
type Store interface {
	// CreateRun allocates a fresh run_id and inserts a Run in running status.
	CreateRun(ctx context.Context, query string) (string, error)

	// AppendStep assigns the next sequential index for the run (starting at 0)
	// and persists the step.
	AppendStep(ctx context.Context, runID string, stepType domain.StepType, payload json.RawMessage) (int, error)

	// FinalizeRun transitions the run from running to a terminal status exactly
	// once. finalOutput applies to success, errorKind to failed.
	FinalizeRun(ctx context.Context, runID string, status domain.RunStatus, finalOutput string, errorKind domain.ErrorKind) error

	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	GetSteps(ctx context.Context, runID string) ([]domain.Step, error)

	// ListRuns returns runs ordered by started_at descending.
	ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error)

	// ComputeMetrics aggregates run history. Success/failure rates reflect only
	// finalized runs; in-flight runs show up in the in-progress count.
	ComputeMetrics(ctx context.Context, rng *TimeRange) (*domain.MetricsSnapshot, error)

	// Lifecycle
	Close() error
}
