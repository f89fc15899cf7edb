package pipeline

import (
	"context"
	"time"

	"github.com/surfwright/surfwright/internal/actions"
	"github.com/surfwright/surfwright/internal/errs"
)

// dispatchFunc maps step fields onto one ops.<kind> call.
type dispatchFunc func(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error)

var dispatchTable = map[string]dispatchFunc{
	"open":          dispatchOpen,
	"list":          dispatchList,
	"snapshot":      dispatchSnapshot,
	"find":          dispatchFind,
	"click":         dispatchClick,
	"click-read":    dispatchClickRead,
	"fill":          dispatchFill,
	"upload":        dispatchUpload,
	"select-option": dispatchSelectOption,
	"keypress":      dispatchKeypress,
	"read":          dispatchRead,
	"eval":          dispatchEval,
	"extract":       dispatchExtract,
	"wait":          dispatchWait,
	"count":         dispatchCount,
	"scroll-plan":   dispatchScrollPlan,
	"scroll-sample": dispatchScrollSample,
	"scroll-watch":  dispatchScrollWatch,
	"observe":       dispatchObserve,
	"screenshot":    dispatchScreenshot,
	"emulate":       dispatchEmulate,
}

// Dispatch resolves step.ID to its ops.<kind> call. Unknown ids yield
// E_QUERY_INVALID (spec §4.6).
func Dispatch(ctx context.Context, runner *actions.Runner, base actions.Request, id string, fields map[string]any) (*actions.Report, error) {
	fn, ok := dispatchTable[id]
	if !ok {
		return nil, errs.New(errs.CodeQueryInvalid, "unsupported step id %q", id)
	}
	return fn(ctx, runner, base, fieldSet(fields))
}

// fieldSet is a step's resolved field bag with typed accessors, since
// Action Set Request structs carry no JSON tags for direct unmarshaling.
type fieldSet map[string]any

func (f fieldSet) str(key string) string {
	if v, ok := f[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (f fieldSet) boolean(key string) bool {
	if v, ok := f[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func (f fieldSet) num(key string) float64 {
	if v, ok := f[key]; ok {
		if n, ok := v.(float64); ok {
			return n
		}
	}
	return 0
}

func (f fieldSet) intVal(key string) int { return int(f.num(key)) }

func (f fieldSet) int64Val(key string) int64 { return int64(f.num(key)) }

func (f fieldSet) durationMs(key string) time.Duration {
	return time.Duration(f.num(key)) * time.Millisecond
}

func (f fieldSet) strSlice(key string) []string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f fieldSet) strMap(key string) map[string]string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}

// query builds an actions.Query from the shared text/contains/selector
// fields every locator-based step accepts.
func (f fieldSet) query() actions.Query {
	return actions.Query{Text: f.str("text"), Contains: f.str("contains"), Selector: f.str("selector")}
}

func dispatchOpen(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Open(ctx, actions.OpenRequest{
		Request:         base,
		URL:             f.str("url"),
		NewTarget:       f.boolean("newTarget"),
		WaitNetworkIdle: f.boolean("waitNetworkIdle"),
		WaitTimeout:     f.durationMs("waitTimeoutMs"),
	})
}

func dispatchList(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.List(ctx, actions.ListRequest{Request: base})
}

func dispatchSnapshot(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Snapshot(ctx, actions.SnapshotRequest{
		Request:     base,
		Selector:    f.str("selector"),
		MaxChars:    f.intVal("maxChars"),
		MaxHeadings: f.intVal("maxHeadings"),
		MaxButtons:  f.intVal("maxButtons"),
		MaxLinks:    f.intVal("maxLinks"),
		VisibleOnly: f.boolean("visibleOnly"),
	})
}

func dispatchFind(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Find(ctx, actions.FindRequest{
		Request:        base,
		Query:          f.query(),
		Limit:          f.intVal("limit"),
		First:          f.boolean("first"),
		VisibleOnly:    f.boolean("visibleOnly"),
		HrefHost:       f.str("hrefHost"),
		HrefPathPrefix: f.str("hrefPathPrefix"),
	})
}

func clickRequestFrom(base actions.Request, f fieldSet) actions.ClickRequest {
	nth := -1
	if v, ok := f["nth"]; ok {
		if n, ok := v.(float64); ok {
			nth = int(n)
		}
	}
	return actions.ClickRequest{
		Request:         base,
		Query:           f.query(),
		Nth:             nth,
		VisibleOnly:     f.boolean("visibleOnly"),
		WaitForText:     f.str("waitForText"),
		WaitForSelector: f.str("waitForSelector"),
		WaitNetworkIdle: f.boolean("waitNetworkIdle"),
		WaitTimeout:     f.durationMs("waitTimeoutMs"),
		WithProof:       f.boolean("withProof"),
	}
}

func dispatchClick(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Click(ctx, clickRequestFrom(base, f))
}

func dispatchClickRead(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.ClickRead(ctx, actions.ClickReadRequest{
		ClickRequest:   clickRequestFrom(base, f),
		ReadSelector:   f.str("readSelector"),
		ReadChunkSize:  f.intVal("readChunkSize"),
		ReadChunkIndex: f.intVal("readChunkIndex"),
	})
}

func dispatchFill(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	req := actions.FillRequest{
		Request:   base,
		Query:     f.query(),
		Value:     f.str("value"),
		EventMode: actions.EventMode(f.str("eventMode")),
	}
	if assertField, ok := f["assert"].(map[string]any); ok {
		a := fieldSet(assertField).toAssertion()
		req.Assert = &a
	}
	return runner.Fill(ctx, req)
}

func (f fieldSet) toAssertion() actions.Assertion {
	return actions.Assertion{Kind: actions.AssertKind(f.str("kind")), Path: f.str("path"), Value: f.str("value")}
}

func dispatchUpload(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Upload(ctx, actions.UploadRequest{Request: base, Query: f.query(), FilePaths: f.strSlice("filePaths")})
}

func dispatchSelectOption(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.SelectOption(ctx, actions.SelectOptionRequest{Request: base, Query: f.query(), Value: f.str("value")})
}

func dispatchKeypress(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Keypress(ctx, actions.KeypressRequest{Request: base, Keys: f.str("keys")})
}

func dispatchRead(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Read(ctx, actions.ReadRequest{
		Request:    base,
		Selector:   f.str("selector"),
		ChunkSize:  f.intVal("chunkSize"),
		ChunkIndex: f.intVal("chunkIndex"),
	})
}

func dispatchEval(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Eval(ctx, actions.EvalRequest{
		Request:         base,
		Expr:            f.str("expr"),
		Expression:      f.str("expression"),
		ScriptPath:      f.str("scriptPath"),
		ArgJSON:         f.str("argJson"),
		FrameID:         f.str("frameId"),
		Timeout:         f.durationMs("timeoutMs"),
		CaptureConsole:  f.boolean("captureConsole"),
		MaxConsoleLines: f.intVal("maxConsoleLines"),
	})
}

func dispatchExtract(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Extract(ctx, actions.ExtractRequest{
		Request:     base,
		Kind:        actions.ExtractKind(f.str("kind")),
		SchemaField: f.strMap("schemaField"),
		DedupeBy:    f.str("dedupeBy"),
	})
}

func dispatchWait(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Wait(ctx, actions.WaitRequest{
		Request:    base,
		Mode:       actions.WaitMode(f.str("mode")),
		Value:      f.str("value"),
		IdleWindow: f.durationMs("idleWindowMs"),
		Timeout:    f.durationMs("timeoutMs"),
	})
}

func dispatchCount(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Count(ctx, actions.CountRequest{Request: base, Query: f.query(), VisibleOnly: f.boolean("visibleOnly")})
}

func dispatchScrollPlan(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.ScrollPlan(ctx, actions.ScrollPlanRequest{Request: base, StepPx: f.intVal("stepPx")})
}

func dispatchScrollSample(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.ScrollSample(ctx, actions.ScrollSampleRequest{Request: base, OffsetPx: f.intVal("offsetPx"), MaxChars: f.intVal("maxChars")})
}

func dispatchScrollWatch(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.ScrollWatch(ctx, actions.ScrollWatchRequest{
		Request:     base,
		StepPx:      f.intVal("stepPx"),
		MaxSteps:    f.intVal("maxSteps"),
		SettleDelay: f.durationMs("settleDelayMs"),
	})
}

func dispatchObserve(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Observe(ctx, actions.ObserveRequest{Request: base})
}

func dispatchScreenshot(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Screenshot(ctx, actions.ScreenshotRequest{
		Request:  base,
		Selector: f.str("selector"),
		Stage:    actions.ScreenshotStage(f.str("stage")),
		Quality:  f.intVal("quality"),
		FullPage: f.boolean("fullPage"),
	})
}

func dispatchEmulate(ctx context.Context, runner *actions.Runner, base actions.Request, f fieldSet) (*actions.Report, error) {
	return runner.Emulate(ctx, actions.EmulateRequest{
		Request:     base,
		Width:       f.int64Val("width"),
		Height:      f.int64Val("height"),
		DeviceScale: f.num("deviceScale"),
		Mobile:      f.boolean("mobile"),
		UserAgent:   f.str("userAgent"),
	})
}
