package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	cdpproto "github.com/chromedp/cdproto/cdp"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/cdp"
	"github.com/surfwright/surfwright/internal/errs"
)

const maxEvalArgJSONBytes = 20 * 1024

// EvalRequest configures the eval action (spec §4.3, §4.4). Exactly one of
// Expr, Expression, ScriptPath supplies the body to run.
type EvalRequest struct {
	Request
	Expr           string // wrapped as "return (<expr>);"
	Expression     string // used verbatim as the function body
	ScriptPath     string // file-loaded script, used verbatim as the body
	ArgJSON        string // optional, declared as the variable `arg` ahead of the body
	FrameID        string
	World          cdp.World
	Timeout        time.Duration
	CaptureConsole bool
	MaxConsoleLines int
}

// ConsoleEntry is one captured console message (spec §4.4's optional console
// capture).
type ConsoleEntry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// EvalData is the eval action's payload.
type EvalData struct {
	Value        any            `json:"value"`
	Truncated    bool           `json:"truncated"`
	ConsoleCount int            `json:"consoleCount,omitempty"`
	Console      []ConsoleEntry `json:"console,omitempty"`
}

// Eval implements spec §4.4's eval action as a thin wrapper over the CDP
// Evaluator (§4.3), adding script-source selection, the JSON argument, and
// optional console capture.
func (r *Runner) Eval(ctx context.Context, req EvalRequest) (*Report, error) {
	body, err := evalBody(req)
	if err != nil {
		return nil, err
	}

	if req.ArgJSON != "" {
		if len(req.ArgJSON) > maxEvalArgJSONBytes {
			return nil, errs.New(errs.CodeEvalScriptTooLarge, "--arg-json exceeds %d bytes", maxEvalArgJSONBytes)
		}
		var probe any
		if err := json.Unmarshal([]byte(req.ArgJSON), &probe); err != nil {
			return nil, errs.Wrap(errs.CodeQueryInvalid, err, "--arg-json is not valid JSON")
		}
		body = fmt.Sprintf("var arg = %s;\n%s", req.ArgJSON, body)
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	frameID := cdpproto.FrameID(req.FrameID)
	world := req.World
	if world == "" {
		world = cdp.WorldMain
	}

	var consoleEntries func() []ConsoleEntry
	if req.CaptureConsole {
		consoleEntries = captureConsole(pro.resolved.PageCtx, req.MaxConsoleLines)
	}

	var data EvalData
	err = measure(&pro.timing.action, func() error {
		result, err := pro.client.Evaluate(ctx, pro.resolved.PageCtx, body, cdp.EvalOptions{
			FrameID: frameID,
			World:   world,
			Timeout: req.Timeout,
		})
		if err != nil {
			return err
		}
		data.Value = result.Value
		data.Truncated = result.Truncated
		if req.CaptureConsole {
			entries := consoleEntries()
			data.ConsoleCount = len(entries)
			data.Console = entries
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "eval", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

func evalBody(req EvalRequest) (string, error) {
	set := 0
	if req.Expr != "" {
		set++
	}
	if req.Expression != "" {
		set++
	}
	if req.ScriptPath != "" {
		set++
	}
	if set != 1 {
		return "", errs.New(errs.CodeQueryInvalid, "exactly one of --expr, --expression, or a script file is required")
	}

	if req.Expr != "" {
		return "return (" + req.Expr + ");", nil
	}
	if req.Expression != "" {
		return req.Expression, nil
	}

	info, err := os.Stat(req.ScriptPath)
	if err != nil {
		return "", errs.Wrap(errs.CodeQueryInvalid, err, "script file %q could not be read", req.ScriptPath)
	}
	if info.Size() > cdp.MaxScriptFileBytes {
		return "", errs.New(errs.CodeEvalScriptTooLarge, "script file exceeds %d bytes", cdp.MaxScriptFileBytes)
	}
	raw, err := os.ReadFile(req.ScriptPath)
	if err != nil {
		return "", errs.Wrap(errs.CodeQueryInvalid, err, "script file %q could not be read", req.ScriptPath)
	}
	return string(raw), nil
}

// captureConsole listens for Runtime.consoleAPICalled and buffers up to max
// entries, returning a func that reports the entries buffered so far
// (chromedp offers no direct listener removal, so the listener simply stops
// mattering once the page context is cancelled).
func captureConsole(pageCtx context.Context, max int) func() []ConsoleEntry {
	if max <= 0 {
		max = 20
	}
	var mu sync.Mutex
	entries := make([]ConsoleEntry, 0, max)
	chromedp.ListenTarget(pageCtx, func(ev any) {
		e, ok := ev.(*cdpruntime.EventConsoleAPICalled)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(entries) >= max {
			return
		}
		text := ""
		for _, a := range e.Args {
			if a.Value != nil {
				text += string(a.Value) + " "
			}
		}
		entries = append(entries, ConsoleEntry{Level: string(e.Type), Text: text})
	})
	return func() []ConsoleEntry {
		mu.Lock()
		defer mu.Unlock()
		return append([]ConsoleEntry(nil), entries...)
	}
}
