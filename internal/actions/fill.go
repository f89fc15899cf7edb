package actions

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// EventMode selects how fill dispatches its keystrokes (spec §4.4).
type EventMode string

const (
	EventModeRealistic EventMode = "realistic"
	EventModeSynthetic EventMode = "synthetic"
)

// FillRequest configures the fill action.
type FillRequest struct {
	Request
	Query
	Value     string
	EventMode EventMode
	Assert    *Assertion
}

// FillData is the fill action's payload.
type FillData struct {
	Filled       bool              `json:"filled"`
	SelectorHint string            `json:"selectorHint"`
	Assertion    *AssertionResult  `json:"assertion,omitempty"`
}

// Fill implements spec §4.4's fill action.
func (r *Runner) Fill(ctx context.Context, req FillRequest) (*Report, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}
	if req.Value == "" {
		return nil, errs.New(errs.CodeQueryInvalid, "--value is required")
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data FillData
	err = measure(&pro.timing.action, func() error {
		matches, err := locate(ctx, pro.resolved.PageCtx, req.Query, MatchFilter{VisibleOnly: true}, 1)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return errs.New(errs.CodeQueryInvalid, "no elements matched the query")
		}
		hint := matches[0].SelectorHint
		data.SelectorHint = hint

		var tasks chromedp.Tasks
		if req.EventMode == EventModeSynthetic {
			// Synthetic mode writes the value directly via the DOM API,
			// skipping per-keystroke input events.
			tasks = chromedp.Tasks{chromedp.SetValue(hint, req.Value, chromedp.ByQuery)}
		} else {
			// Realistic mode clicks to focus, then dispatches one key event
			// per rune, the way a real user's keyboard would.
			tasks = chromedp.Tasks{
				chromedp.Click(hint, chromedp.ByQuery),
				chromedp.SendKeys(hint, req.Value, chromedp.ByQuery),
			}
		}
		if err := chromedp.Run(pro.resolved.PageCtx, tasks); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "fill failed on %s", hint)
		}
		data.Filled = true

		if req.Assert != nil {
			result, err := evaluateAssertion(pro.resolved.PageCtx, *req.Assert)
			data.Assertion = &result
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "fill", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// UploadRequest configures the upload action: setting files on a file-input
// element located by Query (spec §6.1's `upload` step id).
type UploadRequest struct {
	Request
	Query
	FilePaths []string
}

// UploadData is the upload action's payload.
type UploadData struct {
	Uploaded     bool   `json:"uploaded"`
	SelectorHint string `json:"selectorHint"`
	FileCount    int    `json:"fileCount"`
}

// Upload implements the upload action via DOM.setFileInputFiles.
func (r *Runner) Upload(ctx context.Context, req UploadRequest) (*Report, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}
	if len(req.FilePaths) == 0 {
		return nil, errs.New(errs.CodeQueryInvalid, "at least one file path is required")
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data UploadData
	err = measure(&pro.timing.action, func() error {
		matches, err := locate(ctx, pro.resolved.PageCtx, req.Query, MatchFilter{}, 1)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return errs.New(errs.CodeQueryInvalid, "no elements matched the query")
		}
		hint := matches[0].SelectorHint
		data.SelectorHint = hint

		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.SetUploadFiles(hint, req.FilePaths, chromedp.ByQuery)); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "upload failed on %s", hint)
		}
		data.Uploaded = true
		data.FileCount = len(req.FilePaths)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "upload", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// SelectOptionRequest configures the select-option action.
type SelectOptionRequest struct {
	Request
	Query
	Value string
}

// SelectOptionData is the select-option action's payload.
type SelectOptionData struct {
	Selected     bool   `json:"selected"`
	SelectorHint string `json:"selectorHint"`
}

// SelectOption implements spec §4.4's select-option action.
func (r *Runner) SelectOption(ctx context.Context, req SelectOptionRequest) (*Report, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data SelectOptionData
	err = measure(&pro.timing.action, func() error {
		matches, err := locate(ctx, pro.resolved.PageCtx, req.Query, MatchFilter{}, 1)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return errs.New(errs.CodeQueryInvalid, "no elements matched the query")
		}
		hint := matches[0].SelectorHint
		data.SelectorHint = hint

		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.SetValue(hint, req.Value, chromedp.ByQuery)); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "select-option failed on %s", hint)
		}
		data.Selected = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "select-option", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// KeypressRequest configures the keypress action: a raw key (or key
// combination) dispatched page-wide, no query required.
type KeypressRequest struct {
	Request
	Keys string
}

// KeypressData is the keypress action's payload.
type KeypressData struct {
	Dispatched bool `json:"dispatched"`
}

// Keypress implements spec §4.4's keypress action.
func (r *Runner) Keypress(ctx context.Context, req KeypressRequest) (*Report, error) {
	if req.Keys == "" {
		return nil, errs.New(errs.CodeQueryInvalid, "--keys is required")
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data KeypressData
	err = measure(&pro.timing.action, func() error {
		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.KeyEvent(req.Keys)); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "keypress %q failed", req.Keys)
		}
		data.Dispatched = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "keypress", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}
