package actions

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// WaitMode selects the single condition a wait action polls for.
type WaitMode string

const (
	WaitModeText        WaitMode = "text"
	WaitModeSelector    WaitMode = "selector"
	WaitModeNetworkIdle WaitMode = "network-idle"
)

// WaitRequest configures the wait action (spec §4.4).
type WaitRequest struct {
	Request
	Mode       WaitMode
	Value      string        // text or selector; ignored for network-idle
	IdleWindow time.Duration // for network-idle, default 500ms
	Timeout    time.Duration
}

// WaitData is the wait action's payload.
type WaitData struct {
	Mode      string `json:"mode"`
	Value     string `json:"value,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Satisfied bool   `json:"satisfied"`
}

// Wait implements spec §4.4's wait action, mapping an exhausted deadline to
// E_WAIT_TIMEOUT.
func (r *Runner) Wait(ctx context.Context, req WaitRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	data := WaitData{Mode: string(req.Mode), Value: req.Value}
	start := time.Now()

	err = measure(&pro.timing.action, func() error {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var satisfied bool
		var waitErr error
		switch req.Mode {
		case WaitModeText:
			satisfied, waitErr = pollUntil(waitCtx, pro.resolved.PageCtx, textPresentExpr(req.Value))
		case WaitModeSelector:
			satisfied, waitErr = pollUntil(waitCtx, pro.resolved.PageCtx, "document.querySelector("+jsStringLiteral(req.Value)+")!==null")
		case WaitModeNetworkIdle:
			idleWindow := req.IdleWindow
			if idleWindow <= 0 {
				idleWindow = 500 * time.Millisecond
			}
			satisfied, waitErr = waitNetworkIdle(waitCtx, pro.resolved.PageCtx, idleWindow)
		default:
			return errs.New(errs.CodeQueryInvalid, "wait mode must be exactly one of text, selector, network-idle")
		}

		data.Satisfied = satisfied
		data.ElapsedMs = time.Since(start).Milliseconds()
		if waitErr != nil {
			return waitErr
		}
		if !satisfied {
			return errs.New(errs.CodeWaitTimeout, "wait for %s did not become satisfied within %s", req.Mode, timeout)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "wait", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

func textPresentExpr(text string) string {
	return "document.body && document.body.innerText && document.body.innerText.indexOf(" + jsStringLiteral(text) + ")!==-1"
}

// pollUntil re-evaluates expr every 100ms until it is true or ctx expires.
func pollUntil(ctx context.Context, pageCtx context.Context, expr string) (bool, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		var ok bool
		if err := chromedp.Run(pageCtx, chromedp.Evaluate(expr, &ok)); err == nil && ok {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}
	}
}

// waitNetworkIdle listens for Network.requestWillBeSent/loadingFinished and
// reports satisfied once idleWindow elapses with no in-flight requests,
// generalizing internal/capture's networkIdle detection to a standalone
// wait (spec §4.5 shares this CDP event shape).
func waitNetworkIdle(ctx context.Context, pageCtx context.Context, idleWindow time.Duration) (bool, error) {
	var mu sync.Mutex
	inFlight := map[network.RequestID]struct{}{}
	idleTimer := time.NewTimer(idleWindow)
	defer idleTimer.Stop()

	chromedp.ListenTarget(pageCtx, func(ev any) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			inFlight[e.RequestID] = struct{}{}
			idleTimer.Stop()
		case *network.EventLoadingFinished:
			delete(inFlight, e.RequestID)
			if len(inFlight) == 0 {
				idleTimer.Reset(idleWindow)
			}
		case *network.EventLoadingFailed:
			delete(inFlight, e.RequestID)
			if len(inFlight) == 0 {
				idleTimer.Reset(idleWindow)
			}
		}
	})

	select {
	case <-idleTimer.C:
		return true, nil
	case <-ctx.Done():
		return false, nil
	}
}
