package httpapi

import (
	"context"
	"fmt"

	"github.com/surfwright/surfwright/internal/actions"
	"github.com/surfwright/surfwright/internal/pipeline"
	"github.com/surfwright/surfwright/internal/state"
)

// RunPipeline executes opts via pipeline.Run and transitions job through
// running → complete | failed. Intended to be called in its own goroutine;
// it owns the job's lifecycle from the moment it starts, mirroring
// internal/operation/worker.go's Run.
func RunPipeline(ctx context.Context, store Store, jobID string, runner *actions.Runner, st *state.Store, opts pipeline.RunOptions) {
	if err := store.MarkRunning(jobID); err != nil {
		return
	}

	result, err := pipeline.Run(ctx, runner, st, opts)
	if err != nil {
		_ = store.MarkFailed(jobID, fmt.Errorf("pipeline run: %w", err))
		return
	}

	_ = store.MarkComplete(jobID, result)
}
