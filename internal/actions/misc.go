package actions

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// CountRequest configures the count action: how many elements match Query,
// without projecting per-match detail (spec §6.1's `count` step id). The
// count stops at maxFindLimit (50); a larger match set reports 50.
type CountRequest struct {
	Request
	Query
	VisibleOnly bool
}

// CountData is the count action's payload.
type CountData struct {
	Count int `json:"count"`
}

// Count implements the count action.
func (r *Runner) Count(ctx context.Context, req CountRequest) (*Report, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data CountData
	err = measure(&pro.timing.action, func() error {
		matches, err := locate(ctx, pro.resolved.PageCtx, req.Query, MatchFilter{VisibleOnly: req.VisibleOnly}, maxFindLimit)
		if err != nil {
			return err
		}
		data.Count = len(matches)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// ScreenshotStage names the lifecycle point a screenshot is taken at
// (SPEC_FULL.md §6: supplemental lifecycle-stage screenshots).
type ScreenshotStage string

const (
	StageImmediate ScreenshotStage = "immediate"
	StageLoaded    ScreenshotStage = "load"
	StageIdle      ScreenshotStage = "network-idle"
)

// ScreenshotRequest configures the screenshot action.
type ScreenshotRequest struct {
	Request
	Selector  string // empty means the viewport, or the full page when FullPage is set
	Stage     ScreenshotStage
	Quality   int // 0-100, jpeg only
	FullPage  bool
}

// ScreenshotData is the screenshot action's payload.
type ScreenshotData struct {
	ImageBase64 string `json:"imageBase64"`
	Format      string `json:"format"`
	Bytes       int    `json:"bytes"`
}

// Screenshot implements spec §4.4's screenshot action, waiting for the
// requested lifecycle stage before capturing (SPEC_FULL.md §6).
func (r *Runner) Screenshot(ctx context.Context, req ScreenshotRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data ScreenshotData
	err = measure(&pro.timing.action, func() error {
		if req.Stage == StageIdle {
			idleCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			_, _ = waitNetworkIdle(idleCtx, pro.resolved.PageCtx, 500*time.Millisecond)
		} else if req.Stage == StageLoaded {
			_ = chromedp.Run(pro.resolved.PageCtx, chromedp.WaitReady("body", chromedp.ByQuery))
		}

		quality := req.Quality
		if quality <= 0 {
			quality = 90
		}

		var buf []byte
		var capErr error
		if req.Selector != "" {
			capErr = chromedp.Run(pro.resolved.PageCtx, chromedp.Screenshot(req.Selector, &buf, chromedp.ByQuery))
		} else if req.FullPage {
			capErr = chromedp.Run(pro.resolved.PageCtx, chromedp.FullScreenshot(&buf, quality))
		} else {
			capErr = chromedp.Run(pro.resolved.PageCtx, chromedp.CaptureScreenshot(&buf))
		}
		if capErr != nil {
			return errs.Wrap(errs.CodeCDPInvalid, capErr, "screenshot capture failed")
		}

		// chromedp.FullScreenshot encodes jpeg for any quality other than 100.
		format := "png"
		if req.Selector == "" && req.FullPage && quality != 100 {
			format = "jpeg"
		}
		data = ScreenshotData{ImageBase64: base64.StdEncoding.EncodeToString(buf), Format: format, Bytes: len(buf)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "screenshot", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// EmulateRequest configures the emulate action: viewport/device metrics and
// optional user-agent override (spec §4.4's emulate).
type EmulateRequest struct {
	Request
	Width, Height int64
	DeviceScale   float64
	Mobile        bool
	UserAgent     string
}

// EmulateData is the emulate action's payload.
type EmulateData struct {
	Applied bool `json:"applied"`
}

// Emulate implements spec §4.4's emulate action.
func (r *Runner) Emulate(ctx context.Context, req EmulateRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data EmulateData
	err = measure(&pro.timing.action, func() error {
		scale := req.DeviceScale
		if scale <= 0 {
			scale = 1
		}
		tasks := chromedp.Tasks{
			emulation.SetDeviceMetricsOverride(req.Width, req.Height, scale, req.Mobile),
		}
		if req.UserAgent != "" {
			tasks = append(tasks, emulation.SetUserAgentOverride(req.UserAgent))
		}
		if err := chromedp.Run(pro.resolved.PageCtx, tasks); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "emulate failed")
		}
		data.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "emulate", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// DialogAction selects how an in-page dialog (alert/confirm/prompt) is
// resolved (spec §4.4's dialog).
type DialogAction string

const (
	DialogAccept DialogAction = "accept"
	DialogDismiss DialogAction = "dismiss"
)

// DialogRequest configures the dialog action: arming a one-shot auto-handler
// for the next JavaScript dialog.
type DialogRequest struct {
	Request
	Action     DialogAction
	PromptText string
}

// DialogData is the dialog action's payload.
type DialogData struct {
	Armed bool `json:"armed"`
}

// Dialog implements spec §4.4's dialog action by arming Page.handleJavaScriptDialog
// the moment Page.javascriptDialogOpening fires.
func (r *Runner) Dialog(ctx context.Context, req DialogRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data DialogData
	err = measure(&pro.timing.action, func() error {
		accept := req.Action == DialogAccept
		chromedp.ListenTarget(pro.resolved.PageCtx, func(ev any) {
			if _, ok := ev.(*page.EventJavascriptDialogOpening); !ok {
				return
			}
			go func() {
				_ = chromedp.Run(pro.resolved.PageCtx, page.HandleJavaScriptDialog(accept).WithPromptText(req.PromptText))
			}()
		})
		data.Armed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// ObserveRequest configures the observe action: a point-in-time structural
// digest of the page (title, url, frame count, document ready state) used by
// pipelines to decide their next step (spec §4.4's observe).
type ObserveRequest struct {
	Request
}

// ObserveData is the observe action's payload.
type ObserveData struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FrameCount int    `json:"frameCount"`
	ReadyState string `json:"readyState"`
}

// Observe implements spec §4.4's observe action.
func (r *Runner) Observe(ctx context.Context, req ObserveRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data ObserveData
	err = measure(&pro.timing.action, func() error {
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Location(&data.URL))
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Title(&data.Title))
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate("document.readyState", &data.ReadyState))

		var frameCount int
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate("window.frames.length + 1", &frameCount))
		data.FrameCount = frameCount
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// ScrollPlanRequest computes how many fixed-size scroll steps would cover
// the page without performing them (spec §6.1's `scroll-plan` step id).
type ScrollPlanRequest struct {
	Request
	StepPx int
}

// ScrollPlanData is the scroll-plan action's payload.
type ScrollPlanData struct {
	ScrollHeight int `json:"scrollHeight"`
	ViewportPx   int `json:"viewportPx"`
	Steps        int `json:"steps"`
}

// ScrollPlan implements the scroll-plan action.
func (r *Runner) ScrollPlan(ctx context.Context, req ScrollPlanRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	stepPx := req.StepPx
	if stepPx <= 0 {
		stepPx = 800
	}

	var data ScrollPlanData
	err = measure(&pro.timing.action, func() error {
		var scrollHeight, viewportPx int
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate("document.documentElement.scrollHeight", &scrollHeight))
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate("window.innerHeight", &viewportPx))

		steps := 1
		if scrollHeight > viewportPx {
			steps = (scrollHeight-viewportPx+stepPx-1)/stepPx + 1
		}
		data = ScrollPlanData{ScrollHeight: scrollHeight, ViewportPx: viewportPx, Steps: steps}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// ScrollSampleRequest scrolls to one fixed offset and samples the page body's
// text (document.body.innerText, not only the part inside the viewport),
// capped at MaxChars (spec §6.1's `scroll-sample` subcommand).
type ScrollSampleRequest struct {
	Request
	OffsetPx int
	MaxChars int
}

// ScrollSampleData is the scroll-sample action's payload.
type ScrollSampleData struct {
	OffsetPx int    `json:"offsetPx"`
	Text     string `json:"text"`
}

// ScrollSample implements the scroll-sample action.
func (r *Runner) ScrollSample(ctx context.Context, req ScrollSampleRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	maxChars := req.MaxChars
	if maxChars <= 0 {
		maxChars = defaultSnapshotMaxChars
	}

	var data ScrollSampleData
	err = measure(&pro.timing.action, func() error {
		scrollExpr := "window.scrollTo(0, " + strconv.Itoa(req.OffsetPx) + ")"
		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate(scrollExpr, nil)); err != nil {
			return err
		}

		var text string
		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate("document.body.innerText||''", &text)); err != nil {
			return err
		}
		if len(text) > maxChars {
			text = text[:maxChars]
		}
		data = ScrollSampleData{OffsetPx: req.OffsetPx, Text: text}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// ScrollWatchRequest repeatedly scrolls and samples until the page height
// stops growing (infinite-scroll detection) or maxSteps is hit (spec
// §6.1's `scroll-watch` subcommand).
type ScrollWatchRequest struct {
	Request
	StepPx      int
	MaxSteps    int
	SettleDelay time.Duration
}

// ScrollWatchData is the scroll-watch action's payload.
type ScrollWatchData struct {
	StepsTaken   int  `json:"stepsTaken"`
	FinalHeight  int  `json:"finalHeight"`
	GrewEachStep bool `json:"grewEachStep"`
}

// ScrollWatch implements the scroll-watch action.
func (r *Runner) ScrollWatch(ctx context.Context, req ScrollWatchRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	stepPx := req.StepPx
	if stepPx <= 0 {
		stepPx = 800
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}
	settleDelay := req.SettleDelay
	if settleDelay <= 0 {
		settleDelay = 300 * time.Millisecond
	}

	var data ScrollWatchData
	err = measure(&pro.timing.action, func() error {
		var lastHeight int
		grewEachStep := true
		for i := 0; i < maxSteps; i++ {
			scrollExpr := "window.scrollBy(0, " + strconv.Itoa(stepPx) + ")"
			if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate(scrollExpr, nil)); err != nil {
				return err
			}
			select {
			case <-time.After(settleDelay):
			case <-ctx.Done():
				return ctx.Err()
			}

			var height int
			if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate("document.documentElement.scrollHeight", &height)); err != nil {
				return err
			}
			data.StepsTaken++
			if i > 0 && height <= lastHeight {
				grewEachStep = false
				lastHeight = height
				break
			}
			lastHeight = height
		}
		data.FinalHeight = lastHeight
		data.GrewEachStep = grewEachStep
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}
