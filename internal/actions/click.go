package actions

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// ClickRequest configures the click action (spec §4.4).
type ClickRequest struct {
	Request
	Query
	Nth             int // -1 means unset
	VisibleOnly     bool
	WaitForText     string
	WaitForSelector string
	WaitNetworkIdle bool
	WaitTimeout     time.Duration
	WithProof       bool
}

// ProofEnvelope summarizes a click's before/after state (spec §4.4).
type ProofEnvelope struct {
	BeforeURL  string `json:"beforeUrl"`
	AfterURL   string `json:"afterUrl"`
	TargetID   string `json:"targetId"`
	PickedIndex int   `json:"pickedIndex"`
	MatchCount int    `json:"matchCount"`
	WaitResult *WaitData `json:"waitResult,omitempty"`
}

// ClickData is the click action's payload.
type ClickData struct {
	Clicked    bool           `json:"clicked"`
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	WaitResult *WaitData      `json:"waitResult,omitempty"`
	Proof      *ProofEnvelope `json:"proof,omitempty"`
}

// Click implements spec §4.4's click action: resolve the same query as
// find, pick one candidate, click it, then perform at most one post-click
// wait.
func (r *Runner) Click(ctx context.Context, req ClickRequest) (*Report, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var beforeURL string
	_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Location(&beforeURL))

	var data ClickData
	err = measure(&pro.timing.action, func() error {
		matches, err := locate(ctx, pro.resolved.PageCtx, req.Query, MatchFilter{VisibleOnly: req.VisibleOnly}, maxFindLimit)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return errs.New(errs.CodeQueryInvalid, "no elements matched the query")
		}

		picked := 0
		if req.Nth >= 0 {
			if req.Nth >= len(matches) {
				return errs.New(errs.CodeQueryInvalid, "nth %d is out of range for %d matches", req.Nth, len(matches))
			}
			picked = req.Nth
		}
		match := matches[picked]

		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Click(match.SelectorHint, chromedp.ByQuery)); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "click failed on %s", match.SelectorHint)
		}
		data.Clicked = true

		if req.WaitForText != "" || req.WaitForSelector != "" || req.WaitNetworkIdle {
			waitReq := WaitRequest{Request: req.Request, Timeout: req.WaitTimeout}
			switch {
			case req.WaitForText != "":
				waitReq.Mode, waitReq.Value = WaitModeText, req.WaitForText
			case req.WaitForSelector != "":
				waitReq.Mode, waitReq.Value = WaitModeSelector, req.WaitForSelector
			default:
				waitReq.Mode = WaitModeNetworkIdle
			}

			wd := &WaitData{Mode: string(waitReq.Mode), Value: waitReq.Value}
			start := time.Now()
			satisfied, waitErr := pollOrIdle(ctx, pro.resolved.PageCtx, waitReq)
			wd.Satisfied = satisfied
			wd.ElapsedMs = time.Since(start).Milliseconds()
			data.WaitResult = wd
			if waitErr != nil {
				return waitErr
			}
		}

		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Location(&data.URL))
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Title(&data.Title))

		if req.WithProof {
			data.Proof = &ProofEnvelope{
				BeforeURL:   beforeURL,
				AfterURL:    data.URL,
				TargetID:    pro.resolved.TargetID,
				PickedIndex: picked,
				MatchCount:  len(matches),
				WaitResult:  data.WaitResult,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, data.URL, data.Title, "", "click", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// pollOrIdle runs the wait condition inline (without re-running the shared
// prologue, since click already holds the page context).
func pollOrIdle(ctx context.Context, pageCtx context.Context, req WaitRequest) (bool, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch req.Mode {
	case WaitModeText:
		return pollUntil(waitCtx, pageCtx, textPresentExpr(req.Value))
	case WaitModeSelector:
		return pollUntil(waitCtx, pageCtx, "document.querySelector("+jsStringLiteral(req.Value)+")!==null")
	case WaitModeNetworkIdle:
		return waitNetworkIdle(waitCtx, pageCtx, 500*time.Millisecond)
	default:
		return false, nil
	}
}

// ClickReadRequest composes click with an immediate read of the resulting
// page (spec §6.1's `click-read` pipeline step id).
type ClickReadRequest struct {
	ClickRequest
	ReadSelector  string
	ReadChunkSize int
	ReadChunkIndex int
}

// ClickReadData is the click-read action's payload.
type ClickReadData struct {
	Click ClickData `json:"click"`
	Read  ReadData  `json:"read"`
}

// ClickRead implements the click-read composite action.
func (r *Runner) ClickRead(ctx context.Context, req ClickReadRequest) (*Report, error) {
	clickReport, err := r.Click(ctx, req.ClickRequest)
	if err != nil {
		return nil, err
	}
	clickData, _ := clickReport.Data.(ClickData)

	readReport, err := r.Read(ctx, ReadRequest{
		Request:    req.Request,
		Selector:   req.ReadSelector,
		ChunkSize:  req.ReadChunkSize,
		ChunkIndex: req.ReadChunkIndex,
	})
	if err != nil {
		return nil, err
	}
	readData, _ := readReport.Data.(ReadData)

	combined := ClickReadData{Click: clickData, Read: readData}
	return &Report{
		Ok:        true,
		SessionID: clickReport.SessionID,
		TargetID:  clickReport.TargetID,
		TimingMs:  readReport.TimingMs,
		Data:      combined,
	}, nil
}

// ClickAtRequest clicks at raw viewport coordinates rather than a located
// element (spec §4.4's click-at).
type ClickAtRequest struct {
	Request
	X, Y float64
}

// ClickAtData is the click-at action's payload.
type ClickAtData struct {
	Clicked bool `json:"clicked"`
}

// ClickAt implements spec §4.4's click-at action.
func (r *Runner) ClickAt(ctx context.Context, req ClickAtRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data ClickAtData
	err = measure(&pro.timing.action, func() error {
		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.MouseClickXY(req.X, req.Y)); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "click-at failed at (%.0f, %.0f)", req.X, req.Y)
		}
		data.Clicked = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "click-at", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}
