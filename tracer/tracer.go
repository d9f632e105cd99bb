// Package tracer is the writer-facing recording API for traced agent runs.
// It hides step-index bookkeeping behind a per-run handle and routes raw
// failures through the classifier.
package tracer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cellsight/cellsight/classify"
	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/store"
)

// Tracer records agent runs to a trace store. It may serve many concurrent
// RunHandles for different runs; each handle is driven by a single execution
// context end-to-end.
type Tracer struct {
	store store.Store
}

// New creates a tracer backed by the given store.
func New(st store.Store) *Tracer {
	return &Tracer{store: st}
}

// RunHandle binds a sequence of record calls to one specific run. Exactly one
// of FinishSuccess/FinishFailure must be called per handle; calling neither
// leaves the run permanently running, which shows up as a growing in-progress
// count in the metrics.
type RunHandle struct {
	tracer *Tracer
	runID  string
}

// RunID returns the identifier of the bound run.
func (h *RunHandle) RunID() string {
	return h.runID
}

// StartRun opens a new run and returns a handle bound to it.
func (t *Tracer) StartRun(ctx context.Context, query string) (*RunHandle, error) {
	runID, err := t.store.CreateRun(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return &RunHandle{tracer: t, runID: runID}, nil
}

// RecordStep persists one step. The payload is marshaled to JSON; the assigned
// step index is returned for logging only.
func (h *RunHandle) RecordStep(ctx context.Context, stepType domain.StepType, payload interface{}) (int, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = b
	}
	index, err := h.tracer.store.AppendStep(ctx, h.runID, stepType, raw)
	if err != nil {
		return 0, fmt.Errorf("failed to record step: %w", err)
	}
	return index, nil
}

// RecordError classifies a raw failure, records an error step carrying the
// kind and message, and returns the kind. This is the sole path by which raw
// external failures enter the trace; it never escalates, storage failures are
// logged and swallowed.
func (h *RunHandle) RecordError(ctx context.Context, rawErr error) domain.ErrorKind {
	kind := classify.Classify(rawErr)
	message := ""
	if rawErr != nil {
		message = rawErr.Error()
	}
	if _, err := h.RecordStep(ctx, domain.StepTypeError, domain.ErrorPayload{
		Kind:    kind,
		Message: message,
	}); err != nil {
		log.Printf("ERROR: failed to record error step for %s: %v", h.runID, err)
	}
	return kind
}

// FinishSuccess finalizes the run as success with its final output.
func (h *RunHandle) FinishSuccess(ctx context.Context, finalOutput string) error {
	return h.tracer.store.FinalizeRun(ctx, h.runID, domain.RunStatusSuccess, finalOutput, "")
}

// FinishFailure finalizes the run as failed with the classified kind.
func (h *RunHandle) FinishFailure(ctx context.Context, kind domain.ErrorKind) error {
	return h.tracer.store.FinalizeRun(ctx, h.runID, domain.RunStatusFailed, "", kind)
}

// Run reads a run back out of the store.
func (t *Tracer) Run(ctx context.Context, runID string) (*domain.Run, error) {
	return t.store.GetRun(ctx, runID)
}

// Steps reads the ordered step sequence of a run.
func (t *Tracer) Steps(ctx context.Context, runID string) ([]domain.Step, error) {
	return t.store.GetSteps(ctx, runID)
}

// ListRuns passes through to the store's run listing.
func (t *Tracer) ListRuns(ctx context.Context, filter store.RunFilter) ([]domain.Run, error) {
	return t.store.ListRuns(ctx, filter)
}

// Metrics passes through to the store's aggregation.
func (t *Tracer) Metrics(ctx context.Context, rng *store.TimeRange) (*domain.MetricsSnapshot, error) {
	return t.store.ComputeMetrics(ctx, rng)
}
