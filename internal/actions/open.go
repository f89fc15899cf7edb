package actions

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// OpenRequest configures the open action: navigate an existing target to a
// URL, or create a new target when none is addressed (spec §4.4's open,
// spec §6.1's top-level `open` verb and pipeline step id).
type OpenRequest struct {
	Request
	URL             string
	NewTarget       bool
	WaitNetworkIdle bool
	WaitTimeout     time.Duration
}

// OpenData is the open action's payload.
type OpenData struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Open implements the open action. A request naming neither SessionID nor
// TargetID, or one explicitly setting NewTarget, navigates a freshly created
// target; otherwise it reuses the resolved target.
func (r *Runner) Open(ctx context.Context, req OpenRequest) (*Report, error) {
	if req.URL == "" {
		return nil, errs.New(errs.CodeQueryInvalid, "--url is required")
	}

	openReq := req.Request
	if req.NewTarget {
		openReq.TargetID = ""
	}
	openReq.AllowNewSession = true

	pro, err := r.runPrologue(ctx, openReq)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	if pro.resolved == nil {
		resolved, err := pro.client.NewTarget(ctx)
		if err != nil {
			return nil, err
		}
		pro.resolved = resolved
	}

	var data OpenData
	err = measure(&pro.timing.action, func() error {
		pageCtx := pro.resolved.PageCtx
		if err := chromedp.Run(pageCtx, chromedp.Navigate(req.URL)); err != nil {
			return errs.Wrap(errs.CodeCDPInvalid, err, "navigate to %q failed", req.URL)
		}

		if req.WaitNetworkIdle {
			idleCtx, cancel := context.WithTimeout(ctx, timeoutOr(req.WaitTimeout, 15*time.Second))
			defer cancel()
			_, _ = waitNetworkIdle(idleCtx, pageCtx, 500*time.Millisecond)
		}

		_ = chromedp.Run(pageCtx, chromedp.Location(&data.URL))
		_ = chromedp.Run(pageCtx, chromedp.Title(&data.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, data.URL, data.Title, "", "open", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// ListRequest configures the list action: enumerate every currently known
// CDP page target for a session (spec §4.3's ListTargets, spec §6.1's
// `target list`/pipeline `list` step id).
type ListRequest struct {
	Request
}

// ListedTarget is one entry in the list action's payload.
type ListedTarget struct {
	TargetID string `json:"targetId"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

// ListData is the list action's payload.
type ListData struct {
	Targets []ListedTarget `json:"targets"`
	Count   int            `json:"count"`
}

// List implements the list action. Unlike other actions it resolves only
// the session, not a specific target: AllowNewSession is forced so a bare
// `list` against an empty state still has a browser to enumerate.
func (r *Runner) List(ctx context.Context, req ListRequest) (*Report, error) {
	listReq := req.Request
	listReq.AllowNewSession = true
	listReq.SuppressPersist = true

	pro, err := r.runPrologue(ctx, listReq)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data ListData
	err = measure(&pro.timing.action, func() error {
		infos, err := pro.client.ListTargets(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			data.Targets = append(data.Targets, ListedTarget{TargetID: info.TargetID, URL: info.URL, Title: info.Title})
		}
		data.Count = len(data.Targets)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Ok: true, SessionID: pro.sessID, TimingMs: pro.timing.build(), Data: data}, nil
}
