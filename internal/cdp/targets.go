package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// TargetInfo is the subset of CDP target info the Target Resolver exposes.
type TargetInfo struct {
	TargetID string
	URL      string
	Title    string
	Type     string
}

// ListTargets enumerates every CDP page target for every browser context,
// dropping any page whose target info cannot be identified rather than
// assigning it a synthetic handle (spec §4.3).
func (c *Client) ListTargets(ctx context.Context) ([]TargetInfo, error) {
	targets, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCDPUnreachable, err, "failed to list CDP targets")
	}

	var infos []TargetInfo
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if t.TargetID == "" {
			// Unidentifiable page; dropped per spec §4.3.
			continue
		}
		infos = append(infos, TargetInfo{
			TargetID: string(t.TargetID),
			URL:      t.URL,
			Title:    t.Title,
			Type:     t.Type,
		})
	}
	return infos, nil
}

// ResolveResult is the outcome of resolving a stable target id to a live
// CDP context ready for further operations.
type ResolveResult struct {
	TargetID    string
	PageCtx     context.Context
	cancelPage  context.CancelFunc
	Replacement *TargetInfo // set when the original id was missing but a
	// single current target matched the known URL (spec §4.3).
}

// Close releases the page-scoped chromedp context.
func (r *ResolveResult) Close() {
	if r.cancelPage != nil {
		r.cancelPage()
	}
}

// ResolveTarget finds a page whose CDP target id matches targetID. If
// missing, and knownURL is non-empty, it looks for exactly one current
// target matching knownURL, attaches to it instead and records it in the
// result's Replacement field; otherwise it returns E_TARGET_NOT_FOUND with a
// diagnostic of known targets (spec §4.3).
func (c *Client) ResolveTarget(ctx context.Context, targetID, knownURL string) (*ResolveResult, error) {
	infos, err := c.ListTargets(ctx)
	if err != nil {
		return nil, err
	}

	for _, info := range infos {
		if info.TargetID == targetID {
			return c.attach(ctx, info)
		}
	}

	if knownURL != "" {
		var matches []TargetInfo
		for _, info := range infos {
			if info.URL == knownURL {
				matches = append(matches, info)
			}
		}
		if len(matches) == 1 {
			result, err := c.attach(ctx, matches[0])
			if err != nil {
				return nil, err
			}
			replacement := matches[0]
			result.Replacement = &replacement
			return result, nil
		}
	}

	known := make([]string, 0, len(infos))
	for _, info := range infos {
		known = append(known, fmt.Sprintf("%s (%s)", info.TargetID, info.URL))
	}
	return nil, errs.New(errs.CodeTargetNotFound, "target %q not found", targetID).
		WithHints([]string{"run `target list` to see currently known targets"}, map[string]any{"knownTargets": known})
}

// NewTarget creates a fresh page target in the browser (spec §4.4's `open`
// action with no addressed target) and returns it resolved, ready to
// navigate.
func (c *Client) NewTarget(ctx context.Context) (*ResolveResult, error) {
	pageCtx, cancel := chromedp.NewContext(c.browserCtx)
	if err := chromedp.Run(pageCtx); err != nil {
		cancel()
		return nil, errs.Wrap(errs.CodeCDPUnreachable, err, "failed to create a new target")
	}
	info, err := getTargetInfo(pageCtx)
	if err != nil {
		cancel()
		return nil, errs.Wrap(errs.CodeCDPUnreachable, err, "failed to identify newly created target")
	}
	return &ResolveResult{TargetID: string(info.TargetID), PageCtx: pageCtx, cancelPage: cancel}, nil
}

func (c *Client) attach(ctx context.Context, info TargetInfo) (*ResolveResult, error) {
	pageCtx, cancel := chromedp.NewContext(c.browserCtx, chromedp.WithTargetID(target.ID(info.TargetID)))
	if err := chromedp.Run(pageCtx); err != nil {
		cancel()
		return nil, errs.Wrap(errs.CodeCDPUnreachable, err, "failed to attach to target %s", info.TargetID)
	}
	return &ResolveResult{TargetID: info.TargetID, PageCtx: pageCtx, cancelPage: cancel}, nil
}

// getTargetInfo reads Target.getTargetInfo for the current page context,
// used to confirm the stable id of a freshly created target (spec §4.3).
func getTargetInfo(ctx context.Context) (*target.Info, error) {
	var info *target.Info
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		info, err = target.GetTargetInfo().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return info, nil
}
