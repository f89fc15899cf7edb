package actions

import (
	"context"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/state"
)

// SnapshotRequest configures the snapshot action (spec §4.4).
type SnapshotRequest struct {
	Request
	Selector     string // empty means whole body
	MaxChars     int    // default 1200
	MaxHeadings  int    // default 8
	MaxButtons   int    // default 8
	MaxLinks     int    // default 8
	VisibleOnly  bool
}

// SnapshotData is the snapshot action's payload.
type SnapshotData struct {
	ScopeMatched bool     `json:"scopeMatched"`
	URL          string   `json:"url,omitempty"`
	Title        string   `json:"title,omitempty"`
	TextPreview  string   `json:"textPreview,omitempty"`
	Headings     []string `json:"headings,omitempty"`
	Buttons      []string `json:"buttons,omitempty"`
	Links        []string `json:"links,omitempty"`
	Truncated    struct {
		Text     bool `json:"text"`
		Headings bool `json:"headings"`
		Buttons  bool `json:"buttons"`
		Links    bool `json:"links"`
	} `json:"truncated"`
}

const (
	defaultSnapshotMaxChars    = 1200
	defaultSnapshotMaxBuckets  = 8
)

// Snapshot implements spec §4.4's snapshot action.
func (r *Runner) Snapshot(ctx context.Context, req SnapshotRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	data := SnapshotData{}
	err = measure(&pro.timing.action, func() error {
		scope := "body"
		if req.Selector != "" {
			scope = req.Selector
		}

		var exists bool
		existsExpr := "document.querySelector(" + jsStringLiteral(scope) + ") !== null"
		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate(existsExpr, &exists)); err != nil {
			return err
		}
		if !exists {
			data.ScopeMatched = false
			return nil
		}
		data.ScopeMatched = true

		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Location(&data.URL))
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Title(&data.Title))

		var text string
		textExpr := "(function(){var el=document.querySelector(" + jsStringLiteral(scope) + ");return el?el.innerText||'':'';})()"
		_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate(textExpr, &text))
		text = strings.Join(strings.Fields(text), " ")

		maxChars := req.MaxChars
		if maxChars <= 0 {
			maxChars = defaultSnapshotMaxChars
		}
		if len(text) > maxChars {
			data.TextPreview = text[:maxChars]
			data.Truncated.Text = true
		} else {
			data.TextPreview = text
		}

		data.Headings, data.Truncated.Headings = sampleBucket(pro, scope, "h1,h2,h3,h4,h5,h6", bucketLimit(req.MaxHeadings), req.VisibleOnly)
		data.Buttons, data.Truncated.Buttons = sampleBucket(pro, scope, "button,[role=button],input[type=submit]", bucketLimit(req.MaxButtons), req.VisibleOnly)
		data.Links, data.Truncated.Links = sampleBucket(pro, scope, "a[href]", bucketLimit(req.MaxLinks), req.VisibleOnly)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data.ScopeMatched && !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, data.URL, data.Title, string(state.CaptureStopped), "snapshot", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

func bucketLimit(n int) int {
	if n <= 0 {
		return defaultSnapshotMaxBuckets
	}
	return n
}

// sampleBucket evaluates the scoped selector and returns up to limit trimmed
// text samples plus a truncation flag. When visibleOnly is set, elements with
// no layout box are dropped before the limit is applied.
func sampleBucket(pro *prologueResult, scope, selector string, limit int, visibleOnly bool) ([]string, bool) {
	var all []string
	expr := "(function(){var root=document.querySelector(" + jsStringLiteral(scope) + ");if(!root)return [];" +
		"var els=Array.from(root.querySelectorAll(" + jsStringLiteral(selector) + "));" +
		"if(" + jsBool(visibleOnly) + "){els=els.filter(function(e){var r=e.getBoundingClientRect();return r.width>0&&r.height>0;});}" +
		"return els.map(function(e){return (e.innerText||e.textContent||'').trim();}).filter(function(t){return t.length>0;});})()"
	_ = chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate(expr, &all))

	truncated := false
	if len(all) > limit {
		all = all[:limit]
		truncated = true
	}
	return all, truncated
}

func jsBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
