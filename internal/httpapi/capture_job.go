package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/surfwright/surfwright/internal/network"
	"github.com/surfwright/surfwright/internal/state"
)

// pollInterval is how often WatchCapture checks a handle-based worker's
// done marker. Handle-based captures already run out-of-process (Begin
// spawns a detached worker); this surface only needs to notice completion.
const pollInterval = 250 * time.Millisecond

// WatchCapture polls cap until its worker finishes or ctx is cancelled, then
// reports the result through store. Intended to be called in its own
// goroutine right after network.Begin succeeds.
func WatchCapture(ctx context.Context, store Store, jobID string, cap state.NetworkCapture) {
	if err := store.MarkRunning(jobID); err != nil {
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = store.MarkFailed(jobID, fmt.Errorf("capture %q: %w", cap.CaptureID, ctx.Err()))
			return
		case <-ticker.C:
			if !network.IsDone(cap) {
				continue
			}
			result, err := network.ReadResult(cap)
			if err != nil {
				_ = store.MarkFailed(jobID, err)
				return
			}
			if result.Error != "" {
				_ = store.MarkFailed(jobID, fmt.Errorf("capture %q: %s", cap.CaptureID, result.Error))
				return
			}
			_ = store.MarkComplete(jobID, result)
			return
		}
	}
}
