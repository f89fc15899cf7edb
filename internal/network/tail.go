package network

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/surfwright/surfwright/internal/cdp"
)

// TailRequest configures the `network-tail` streaming mode: records are
// written to Writer as NDJSON lines as soon as they finalize, rather than
// collected for a single bulk response.
type TailRequest struct {
	Profile        Profile
	Defaults       Defaults
	Filter         Filter
	RedactPatterns []string
	ActionID       string
	Writer         io.Writer
}

// RunTail streams records from resolved's page to req.Writer until ctx is
// cancelled (`target network-tail` cancels it on SIGINT or SIGTERM).
// Returns the final accumulated set for a closing
// summary line, which the caller may choose to emit after the stream ends.
func RunTail(ctx context.Context, resolved *cdp.ResolveResult, req TailRequest) ([]Record, error) {
	redactor, err := NewRedactor(req.RedactPatterns)
	if err != nil {
		return nil, err
	}

	epoch := time.Now()
	sess := NewSession(epoch, req.Defaults, req.Filter, redactor, req.ActionID)
	sess.SetCaptureKey(req.ActionID)

	enc := json.NewEncoder(req.Writer)
	sess.OnRecord(func(r Record) {
		_ = enc.Encode(r)
	})
	sess.Listen(resolved.PageCtx)

	<-ctx.Done()
	return sess.Records(), nil
}
