package network

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/cdp"
	"github.com/surfwright/surfwright/internal/errs"
)

// SynchronousRequest captures network activity for one bounded window
// against an already-resolved page, the `target network` command (spec
// §4.5). It is the direct descendant of internal/capture.Capture, minus the
// document-navigation step: the page is assumed already resolved by the
// Action Set's prologue.
type SynchronousRequest struct {
	Profile         Profile
	Defaults        Defaults // caller overrides already merged onto ResolveDefaults(Profile)
	Filter          Filter
	RedactPatterns  []string
	ActionID        string
	ReloadBeforeRun bool
}

// SynchronousResult is the outcome of one synchronous capture.
type SynchronousResult struct {
	Records  []Record
	TimedOut bool
}

// RunSynchronous listens on pageCtx for Defaults.CaptureDuration(), optionally
// reloading the page first, and returns everything captured during the
// window.
func RunSynchronous(ctx context.Context, resolved *cdp.ResolveResult, req SynchronousRequest) (*SynchronousResult, error) {
	redactor, err := NewRedactor(req.RedactPatterns)
	if err != nil {
		return nil, err
	}

	epoch := time.Now()
	sess := NewSession(epoch, req.Defaults, req.Filter, redactor, req.ActionID)
	sess.SetCaptureKey(req.ActionID)
	sess.Listen(resolved.PageCtx)

	duration := req.Defaults.Clamp().CaptureDuration()
	capCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	timedOut := false
	if req.ReloadBeforeRun || req.Defaults.ReloadBeforeCapture {
		reloadCtx, reloadCancel := context.WithTimeout(resolved.PageCtx, duration)
		err := chromedp.Run(reloadCtx, chromedp.Reload())
		reloadCancel()
		if err != nil && !isTimeoutErr(err) {
			return nil, errs.Wrap(errs.CodeCDPUnreachable, err, "reload before capture failed")
		}
	}

	<-capCtx.Done()
	if capCtx.Err() == context.DeadlineExceeded {
		timedOut = true
	}

	return &SynchronousResult{Records: sess.Records(), TimedOut: timedOut}, nil
}

// isTimeoutErr mirrors internal/capture/capture.go's isTimeoutError.
func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
