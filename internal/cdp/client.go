// Package cdp implements the Target Resolver and CDP Evaluator (spec §4.3):
// enumerating CDP targets, mapping stable ids to pages, walking frame trees,
// validating selectors, and running bounded page-scripts in the main or an
// isolated world.
//
// Grounded on internal/capture/capture.go's chromedp.NewRemoteAllocator /
// chromedp.NewContext wiring and its ListenTarget event-switch idiom,
// generalized from a single capture-scoped connection into a
// long-lived-per-command Client that the Action Set and Network Engine share.
package cdp

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/logging"
)

// Client wraps one CDP connection (one browser context, potentially many
// page targets) for the lifetime of a single command invocation.
type Client struct {
	allocCtx   context.Context
	cancelAll  context.CancelFunc
	browserCtx context.Context
	cancelBCtx context.CancelFunc

	isolatedWorlds map[string]cdpRuntimeWorld // frameId -> cached isolated world
	mainWorlds     map[string]cdpRuntimeWorld // frameId -> discovered main world
}

// cdpRuntimeWorld identifies an evaluation context within a frame.
type cdpRuntimeWorld struct {
	executionContextID int64
}

// Connect attaches to an existing CDP endpoint via its WebSocket debugger
// URL (spec §6.3: obtained from <origin>/json/version).
func Connect(ctx context.Context, webSocketDebuggerURL string) (*Client, error) {
	log := logging.Global()
	logf, errorf, debugf := logging.CDPHooks(log)

	allocCtx, cancelAll := chromedp.NewRemoteAllocator(ctx, webSocketDebuggerURL)

	browserCtx, cancelBCtx := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logf),
		chromedp.WithErrorf(errorf),
		chromedp.WithDebugf(debugf),
	)

	// Force the target to actually attach so a dead endpoint fails fast
	// rather than on the caller's first real operation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBCtx()
		cancelAll()
		return nil, errs.Wrap(errs.CodeCDPUnreachable, err, "failed to attach to CDP endpoint %s", webSocketDebuggerURL)
	}

	return &Client{
		allocCtx:       allocCtx,
		cancelAll:      cancelAll,
		browserCtx:     browserCtx,
		cancelBCtx:     cancelBCtx,
		isolatedWorlds: map[string]cdpRuntimeWorld{},
		mainWorlds:     map[string]cdpRuntimeWorld{},
	}, nil
}

// Close releases the underlying chromedp contexts.
func (c *Client) Close() {
	c.cancelBCtx()
	c.cancelAll()
}

// Context returns the root chromedp context new page targets are created
// relative to.
func (c *Client) Context() context.Context { return c.browserCtx }

// WithTimeout returns ctx bounded by d (30s when d is not positive), along
// with its cancel func. Evaluate bounds each evaluation with it.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

