package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// World identifies which JS execution context an evaluation runs in (spec
// §4.3): isolated worlds are created via Page.createIsolatedWorld and cached
// per frame id for read-only DOM scraping; the main world is identified via
// Runtime.executionContextCreated (auxData.isDefault=true) because eval
// must see page scope.
type World string

const (
	WorldIsolated World = "isolated"
	WorldMain     World = "main"
)

const (
	maxProjectedStringChars = 4000
	maxProjectedItems       = 200
	maxProjectedDepth       = 6
	maxInlineExprChars      = 4096

	// MaxScriptFileBytes bounds a file-loaded eval script (spec §4.3).
	MaxScriptFileBytes = 64 * 1024
)

// EvalOptions configures one bounded evaluation.
type EvalOptions struct {
	FrameID cdp.FrameID
	World   World
	Timeout time.Duration
}

// EvalResult is the projected, bounded outcome of an evaluation.
type EvalResult struct {
	Value     any
	Truncated bool
}

// Evaluate runs expr (already wrapped by the caller, e.g. as
// "return (<expr>);") in the requested world and frame, enforcing the
// timeout and bounded-projection rules from spec §4.3.
func (c *Client) Evaluate(ctx context.Context, pageCtx context.Context, expr string, opts EvalOptions) (*EvalResult, error) {
	if len(expr) > maxInlineExprChars {
		return nil, errs.New(errs.CodeEvalScriptTooLarge, "expression exceeds %d characters", maxInlineExprChars)
	}

	evalCtx, cancel := WithTimeout(ctx, opts.Timeout)
	defer cancel()

	execCtxID, err := c.executionContextFor(evalCtx, pageCtx, opts.FrameID, opts.World)
	if err != nil {
		return nil, err
	}

	wrapped := fmt.Sprintf("(function(){ %s })()", expr)

	type evalOutcome struct {
		raw json.RawMessage
		exc *cdpruntime.ExceptionDetails
		err error
	}
	outcomeCh := make(chan evalOutcome, 1)

	go func() {
		var raw json.RawMessage
		var exc *cdpruntime.ExceptionDetails
		runErr := chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			result, exception, err := cdpruntime.Evaluate(wrapped).
				WithContextID(execCtxID).
				WithReturnByValue(true).
				WithAwaitPromise(true).
				Do(ctx)
			if err != nil {
				return err
			}
			exc = exception
			if result != nil {
				raw = result.Value
			}
			return nil
		}))
		outcomeCh <- evalOutcome{raw: raw, exc: exc, err: runErr}
	}()

	select {
	case out := <-outcomeCh:
		if out.err != nil {
			return nil, errs.Wrap(errs.CodeEvalRuntime, out.err, "evaluation failed")
		}
		if out.exc != nil {
			return nil, errs.New(errs.CodeEvalRuntime, "%s", truncate(out.exc.Text, 500))
		}
		return projectResult(out.raw)
	case <-evalCtx.Done():
		c.terminateExecution(ctx, pageCtx)
		return nil, errs.New(errs.CodeEvalTimeout, "evaluation exceeded its timeout budget")
	}
}

// terminateExecution attempts Runtime.terminateExecution and Page.stopLoading
// best-effort on timeout, per spec §4.3.
func (c *Client) terminateExecution(ctx context.Context, pageCtx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_ = cdpruntime.TerminateExecution().Do(cleanupCtx)
		_ = page.StopLoading().Do(cleanupCtx)
		return nil
	}))
}

// executionContextFor resolves the execution context id for the requested
// world, creating and caching an isolated world per frame id when needed.
func (c *Client) executionContextFor(ctx context.Context, pageCtx context.Context, frameID cdp.FrameID, world World) (cdpruntime.ExecutionContextID, error) {
	key := string(frameID)

	if world == WorldIsolated {
		if cached, ok := c.isolatedWorlds[key]; ok {
			return cdpruntime.ExecutionContextID(cached.executionContextID), nil
		}

		var execCtxID cdpruntime.ExecutionContextID
		err := chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			execCtxID, _, err = page.CreateIsolatedWorld(frameID).
				WithWorldName("surfwright").
				WithGrantUniveralAccess(true).
				Do(ctx)
			return err
		}))
		if err != nil {
			return 0, errs.Wrap(errs.CodeCDPInvalid, err, "failed to create isolated world for frame %s", frameID)
		}
		c.isolatedWorlds[key] = cdpRuntimeWorld{executionContextID: int64(execCtxID)}
		return execCtxID, nil
	}

	if cached, ok := c.mainWorlds[key]; ok {
		return cdpruntime.ExecutionContextID(cached.executionContextID), nil
	}
	return 0, errs.New(errs.CodeCDPInvalid, "no main-world execution context observed yet for frame %s", frameID)
}

// ObserveMainWorld watches Runtime.executionContextCreated and records the
// default (main-world) execution context id for frameID, as required before
// the first `eval` command can run in that frame (spec §4.3).
func (c *Client) ObserveMainWorld(pageCtx context.Context, frameID cdp.FrameID) {
	chromedp.ListenTarget(pageCtx, func(ev any) {
		e, ok := ev.(*cdpruntime.EventExecutionContextCreated)
		if !ok || e.Context == nil {
			return
		}
		if !e.Context.AuxData.IsDefault {
			return
		}
		if e.Context.AuxData.FrameID != frameID {
			return
		}
		c.mainWorlds[string(frameID)] = cdpRuntimeWorld{executionContextID: int64(e.Context.ID)}
	})
}

// projectResult bounds a raw JSON result per spec §4.3: max string chars
// 4000, max items 200, max depth 6; cyclic/unserializable values yield
// E_EVAL_RESULT_UNSERIALIZABLE (detected here as invalid JSON, since a
// genuinely cyclic value can never reach us as returnByValue JSON).
func projectResult(raw json.RawMessage) (*EvalResult, error) {
	if len(raw) == 0 {
		return &EvalResult{Value: nil}, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errs.Wrap(errs.CodeEvalResultUnserial, err, "evaluation result could not be projected")
	}

	truncated := false
	projected := projectValue(v, 0, &truncated)
	return &EvalResult{Value: projected, Truncated: truncated}, nil
}

func projectValue(v any, depth int, truncated *bool) any {
	if depth >= maxProjectedDepth {
		*truncated = true
		return nil
	}

	switch t := v.(type) {
	case string:
		if len(t) > maxProjectedStringChars {
			*truncated = true
			return t[:maxProjectedStringChars]
		}
		return t
	case []any:
		n := len(t)
		if n > maxProjectedItems {
			n = maxProjectedItems
			*truncated = true
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = projectValue(t[i], depth+1, truncated)
		}
		return out
	case map[string]any:
		if len(t) > maxProjectedItems {
			*truncated = true
		}
		out := make(map[string]any, len(t))
		i := 0
		for k, val := range t {
			if i >= maxProjectedItems {
				break
			}
			out[k] = projectValue(val, depth+1, truncated)
			i++
		}
		return out
	default:
		return t
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
