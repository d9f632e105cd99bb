// Package agent defines the externally supplied agent-execution capability and
// its mock and remote variants.
package agent

import (
	"context"
	"log"

	"github.com/cellsight/cellsight/tracer"
)

// Capability produces a final textual output for a query, or fails. Every tool
// invocation and every raised failure must be surfaced through the handle it
// was given. Implementations may block; the core imposes no timeout of its own.
type Capability interface {
	Execute(ctx context.Context, query string, handle *tracer.RunHandle) (string, error)
}

// Run drives one traced run end-to-end: it opens a run, executes the
// capability, and finalizes with exactly one terminal status. On failure the
// raw error is routed through the handle so the run carries a classified kind.
func Run(ctx context.Context, t *tracer.Tracer, cap Capability, query string) (string, string, error) {
	handle, err := t.StartRun(ctx, query)
	if err != nil {
		return "", "", err
	}

	output, execErr := cap.Execute(ctx, query, handle)
	if execErr != nil {
		kind := handle.RecordError(ctx, execErr)
		if err := handle.FinishFailure(ctx, kind); err != nil {
			log.Printf("ERROR: failed to finalize run %s: %v", handle.RunID(), err)
		}
		return handle.RunID(), "", execErr
	}

	if err := handle.FinishSuccess(ctx, output); err != nil {
		log.Printf("ERROR: failed to finalize run %s: %v", handle.RunID(), err)
	}
	return handle.RunID(), output, nil
}
