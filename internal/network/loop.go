package network

import (
	"context"
	"time"

	"github.com/surfwright/surfwright/internal/cdp"
)

// RunWorkerLoop is the body of the detached network worker process (spec
// §4.5's handle-based mode): connect to the browser the job names, attach a
// Session to its target, and capture until the stop-signal file appears or
// MaxRuntimeMs elapses — whichever comes first. The worker subcommand
// (internal/cmd) wraps this with job loading and WriteResult.
func RunWorkerLoop(ctx context.Context, job WorkerJob) WorkerResult {
	client, err := cdp.Connect(ctx, job.WebSocketURL)
	if err != nil {
		return WorkerResult{Error: err.Error()}
	}
	defer client.Close()

	resolved, err := client.ResolveTarget(ctx, job.TargetID, "")
	if err != nil {
		return WorkerResult{Error: err.Error()}
	}
	defer resolved.Close()

	redactor, err := NewRedactor(job.RedactPatterns)
	if err != nil {
		return WorkerResult{Error: err.Error()}
	}

	epoch := time.Now()
	sess := NewSession(epoch, job.Defaults, job.Filter, redactor, "")
	sess.SetCaptureKey(job.CaptureID)
	sess.Listen(resolved.PageCtx)

	maxRuntime := 10 * time.Minute
	if job.MaxRuntimeMs > 0 {
		maxRuntime = time.Duration(job.MaxRuntimeMs) * time.Millisecond
	}
	deadline := time.Now().Add(maxRuntime)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return WorkerResult{Records: sess.Records(), TimedOut: true}
		case <-ticker.C:
			if StopRequested(job) {
				return WorkerResult{Records: sess.Records()}
			}
			if time.Now().After(deadline) {
				return WorkerResult{Records: sess.Records(), TimedOut: true}
			}
		}
	}
}
