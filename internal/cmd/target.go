package cmd

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/pipeline"
)

var targetLong = templates.LongDesc(`
	Act on a page target: locate, read, fill, and observe it through the
	same dispatch table a plan step uses (spec §4.4, §4.6).`)

// flagKind names the pflag type a verbSpec field is collected through.
type flagKind int

const (
	kindString flagKind = iota
	kindBool
	kindInt
	kindMs
	kindFloat
	kindStringSlice
)

// verbFlag describes one CLI flag and the dispatch field it feeds.
type verbFlag struct {
	name  string
	field string
	kind  flagKind
	usage string
	def   string
}

// verbSpec describes one `target <verb>` subcommand: its dispatch id and
// the flags collected into that step's field map.
type verbSpec struct {
	use   string
	short string
	id    string
	flags []verbFlag
}

var queryFlags = []verbFlag{
	{name: "text", field: "text", kind: kindString, usage: "match elements by visible text"},
	{name: "contains", field: "contains", kind: kindString, usage: "match elements whose text contains this substring"},
	{name: "selector", field: "selector", kind: kindString, usage: "match elements by CSS selector"},
}

var targetVerbs = []verbSpec{
	{use: "list", short: "List targets in the resolved session", id: "list"},
	{
		use: "snapshot", short: "Summarize the page: headings, buttons, links", id: "snapshot",
		flags: []verbFlag{
			{name: "selector", field: "selector", kind: kindString, usage: "restrict the snapshot to a subtree"},
			{name: "max-chars", field: "maxChars", kind: kindInt, usage: "truncate the text summary"},
			{name: "max-headings", field: "maxHeadings", kind: kindInt, usage: "cap the number of headings listed"},
			{name: "max-buttons", field: "maxButtons", kind: kindInt, usage: "cap the number of buttons listed"},
			{name: "max-links", field: "maxLinks", kind: kindInt, usage: "cap the number of links listed"},
			{name: "visible-only", field: "visibleOnly", kind: kindBool, usage: "only consider visible elements"},
		},
	},
	{
		use: "find", short: "Locate elements matching a query", id: "find",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "limit", field: "limit", kind: kindInt, usage: "cap the number of matches returned"},
			verbFlag{name: "first", field: "first", kind: kindBool, usage: "return only the first match"},
			verbFlag{name: "visible-only", field: "visibleOnly", kind: kindBool, usage: "only consider visible elements"},
			verbFlag{name: "href-host", field: "hrefHost", kind: kindString, usage: "restrict to anchors whose href host matches"},
			verbFlag{name: "href-path-prefix", field: "hrefPathPrefix", kind: kindString, usage: "restrict to anchors whose href path has this prefix"},
		),
	},
	{
		use: "click", short: "Click the resolved element", id: "click",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "nth", field: "nth", kind: kindInt, usage: "click the nth match (0-based; default: the only match)", def: "-1"},
			verbFlag{name: "visible-only", field: "visibleOnly", kind: kindBool, usage: "only consider visible elements"},
			verbFlag{name: "wait-for-text", field: "waitForText", kind: kindString, usage: "after clicking, wait for this text to appear"},
			verbFlag{name: "wait-for-selector", field: "waitForSelector", kind: kindString, usage: "after clicking, wait for this selector to appear"},
			verbFlag{name: "wait-network-idle", field: "waitNetworkIdle", kind: kindBool, usage: "after clicking, wait for network idle"},
			verbFlag{name: "wait-timeout-ms", field: "waitTimeoutMs", kind: kindMs, usage: "timeout for the post-click wait"},
			verbFlag{name: "with-proof", field: "withProof", kind: kindBool, usage: "capture a before/after screenshot pair"},
		),
	},
	{
		use: "click-read", short: "Click the resolved element, then read a region", id: "click-read",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "nth", field: "nth", kind: kindInt, usage: "click the nth match (0-based)", def: "-1"},
			verbFlag{name: "wait-for-selector", field: "waitForSelector", kind: kindString, usage: "after clicking, wait for this selector to appear"},
			verbFlag{name: "read-selector", field: "readSelector", kind: kindString, usage: "selector to read text from after clicking"},
			verbFlag{name: "read-chunk-size", field: "readChunkSize", kind: kindInt, usage: "characters per chunk"},
			verbFlag{name: "read-chunk-index", field: "readChunkIndex", kind: kindInt, usage: "chunk index to return"},
		),
	},
	{
		use: "fill", short: "Fill the resolved input element", id: "fill",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "value", field: "value", kind: kindString, usage: "value to fill"},
			verbFlag{name: "event-mode", field: "eventMode", kind: kindString, usage: "realistic|synthetic", def: "realistic"},
		),
	},
	{
		use: "upload", short: "Upload files to the resolved file input", id: "upload",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "file-path", field: "filePaths", kind: kindStringSlice, usage: "file path to upload (repeatable)"},
		),
	},
	{
		use: "select-option", short: "Select an option on the resolved <select>", id: "select-option",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "value", field: "value", kind: kindString, usage: "option value to select"},
		),
	},
	{
		use: "keypress", short: "Send a key sequence to the focused element", id: "keypress",
		flags: []verbFlag{
			{name: "keys", field: "keys", kind: kindString, usage: "key sequence, e.g. Enter or Control+A"},
		},
	},
	{
		use: "read", short: "Read text from a selector, chunked", id: "read",
		flags: []verbFlag{
			{name: "selector", field: "selector", kind: kindString, usage: "selector to read text from"},
			{name: "chunk-size", field: "chunkSize", kind: kindInt, usage: "characters per chunk"},
			{name: "chunk-index", field: "chunkIndex", kind: kindInt, usage: "chunk index to return"},
		},
	},
	{
		use: "eval", short: "Evaluate a JavaScript expression in the page", id: "eval",
		flags: []verbFlag{
			{name: "expr", field: "expr", kind: kindString, usage: "inline expression"},
			{name: "expression", field: "expression", kind: kindString, usage: "inline expression (long form)"},
			{name: "script-path", field: "scriptPath", kind: kindString, usage: "path to a script file"},
			{name: "arg-json", field: "argJson", kind: kindString, usage: "JSON-encoded argument passed to the script"},
			{name: "frame-id", field: "frameId", kind: kindString, usage: "evaluate inside a specific frame"},
			{name: "timeout-ms", field: "timeoutMs", kind: kindMs, usage: "evaluation timeout"},
			{name: "capture-console", field: "captureConsole", kind: kindBool, usage: "capture console output during evaluation"},
			{name: "max-console-lines", field: "maxConsoleLines", kind: kindInt, usage: "cap captured console lines"},
		},
	},
	{
		use: "extract", short: "Extract structured content using a content-shape heuristic", id: "extract",
		flags: []verbFlag{
			{name: "kind", field: "kind", kind: kindString, usage: "generic|blog|news|docs|docs-commands|command-lines|headings|links|codeblocks|forms|tables|table-rows"},
			{name: "dedupe-by", field: "dedupeBy", kind: kindString, usage: "field to deduplicate extracted items by"},
		},
	},
	{
		use: "wait", short: "Wait for text, a selector, or network idle", id: "wait",
		flags: []verbFlag{
			{name: "mode", field: "mode", kind: kindString, usage: "text|selector|network-idle"},
			{name: "value", field: "value", kind: kindString, usage: "text or selector to wait for"},
			{name: "idle-window-ms", field: "idleWindowMs", kind: kindMs, usage: "network-idle quiet window"},
			{name: "timeout-ms", field: "timeoutMs", kind: kindMs, usage: "wait timeout"},
		},
	},
	{
		use: "count", short: "Count elements matching a query", id: "count",
		flags: append(append([]verbFlag{}, queryFlags...),
			verbFlag{name: "visible-only", field: "visibleOnly", kind: kindBool, usage: "only consider visible elements"},
		),
	},
	{
		use: "scroll-plan", short: "Plan the scroll steps needed to cover the page", id: "scroll-plan",
		flags: []verbFlag{{name: "step-px", field: "stepPx", kind: kindInt, usage: "pixels per scroll step"}},
	},
	{
		use: "scroll-sample", short: "Scroll by an offset and sample visible text", id: "scroll-sample",
		flags: []verbFlag{
			{name: "offset-px", field: "offsetPx", kind: kindInt, usage: "pixels to scroll by"},
			{name: "max-chars", field: "maxChars", kind: kindInt, usage: "truncate the sampled text"},
		},
	},
	{
		use: "scroll-watch", short: "Scroll repeatedly, sampling after each step until settled", id: "scroll-watch",
		flags: []verbFlag{
			{name: "step-px", field: "stepPx", kind: kindInt, usage: "pixels per scroll step"},
			{name: "max-steps", field: "maxSteps", kind: kindInt, usage: "maximum scroll steps"},
			{name: "settle-delay-ms", field: "settleDelayMs", kind: kindMs, usage: "delay between steps"},
		},
	},
	{use: "observe", short: "Summarize the page's current dynamic state", id: "observe"},
	{
		use: "screenshot", short: "Capture a screenshot of the page or an element", id: "screenshot",
		flags: []verbFlag{
			{name: "selector", field: "selector", kind: kindString, usage: "capture a single element instead of the viewport"},
			{name: "stage", field: "stage", kind: kindString, usage: "immediate|load|network-idle", def: "immediate"},
			{name: "quality", field: "quality", kind: kindInt, usage: "JPEG quality 1-100"},
			{name: "full-page", field: "fullPage", kind: kindBool, usage: "capture the full scrollable page"},
		},
	},
	{
		use: "emulate", short: "Emulate a viewport/device profile", id: "emulate",
		flags: []verbFlag{
			{name: "width", field: "width", kind: kindInt, usage: "viewport width in CSS pixels"},
			{name: "height", field: "height", kind: kindInt, usage: "viewport height in CSS pixels"},
			{name: "device-scale", field: "deviceScale", kind: kindFloat, usage: "device scale factor"},
			{name: "mobile", field: "mobile", kind: kindBool, usage: "emulate a mobile device"},
			{name: "user-agent", field: "userAgent", kind: kindString, usage: "override the user agent string"},
		},
	},
}

// registerVerbFlags wires each verbFlag onto flags and returns a collector
// that reads back only the flags the caller actually set, keyed by dispatch
// field name — matching the pipeline plan step field-key vocabulary exactly
// so the same dispatch table serves both plans and the CLI.
func registerVerbFlags(flags *flag.FlagSet, specs []verbFlag) func() map[string]any {
	type binding struct {
		field string
		get   func() any
	}
	bindings := make([]binding, 0, len(specs))

	for _, spec := range specs {
		switch spec.kind {
		case kindString:
			p := flags.String(spec.name, spec.def, spec.usage)
			bindings = append(bindings, binding{spec.field, func() any { return *p }})
		case kindBool:
			p := flags.Bool(spec.name, false, spec.usage)
			bindings = append(bindings, binding{spec.field, func() any { return *p }})
		case kindInt:
			def := 0
			if spec.def == "-1" {
				def = -1
			}
			p := flags.Int(spec.name, def, spec.usage)
			bindings = append(bindings, binding{spec.field, func() any { return float64(*p) }})
		case kindMs:
			p := flags.Int64(spec.name, 0, spec.usage)
			bindings = append(bindings, binding{spec.field, func() any { return float64(*p) }})
		case kindFloat:
			p := flags.Float64(spec.name, 0, spec.usage)
			bindings = append(bindings, binding{spec.field, func() any { return *p }})
		case kindStringSlice:
			p := flags.StringSlice(spec.name, nil, spec.usage)
			bindings = append(bindings, binding{spec.field, func() any {
				out := make([]any, len(*p))
				for i, s := range *p {
					out[i] = s
				}
				return out
			}})
		}
	}

	return func() map[string]any {
		out := make(map[string]any, len(bindings))
		for _, b := range bindings {
			v := b.get()
			if isZeroField(v) {
				continue
			}
			out[b.field] = v
		}
		return out
	}
}

func isZeroField(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	}
	return false
}

func newVerbCommand(o *SurfwrightOptions, spec verbSpec) *cobra.Command {
	var common commonFlags
	cmd := &cobra.Command{
		Use:                   spec.use,
		DisableFlagsInUseLine: true,
		Short:                 spec.short,
	}
	common.register(cmd.Flags())
	collect := registerVerbFlags(cmd.Flags(), spec.flags)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return emit(o.Out, common.Pretty, nil, err)
		}
		ctx, cancel := signalContext()
		defer cancel()

		report, err := pipeline.Dispatch(ctx, rt.runner(), common.request(), spec.id, collect())
		return emit(o.Out, common.Pretty, report, err)
	}
	return cmd
}

// NewTargetCommand groups the page-target action verbs, all dispatched
// through the same table a plan step uses (spec §4.4, §4.6). The
// `health|hud|frames|attr|close` verbs named in spec.md's representative
// command grouping have no backing implementation in any built subsystem
// and are intentionally omitted; see DESIGN.md.
func NewTargetCommand(o *SurfwrightOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "target",
		DisableFlagsInUseLine: true,
		Short:                 "Act on a page target",
		Long:                  targetLong,
	}

	for _, spec := range targetVerbs {
		cmd.AddCommand(newVerbCommand(o, spec))
	}
	cmd.AddCommand(networkCommands(o)...)

	return cmd
}
