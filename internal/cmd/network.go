package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/network"
	"github.com/surfwright/surfwright/internal/session"
	"github.com/surfwright/surfwright/internal/state"
)

// networkWorkerSubcommand is the hidden re-exec subcommand network.Begin
// spawns a detached worker process with.
const networkWorkerSubcommand = "__network-worker"

// networkCommands returns every `target network*` verb (spec §6.1), flat
// siblings under `target` rather than nested under an intermediate group:
// the synchronous and tailing modes resolve a page directly; the
// handle-based modes start, poll, and export a capture that outlives the
// invocation.
func networkCommands(o *SurfwrightOptions) []*cobra.Command {
	return []*cobra.Command{
		newTargetNetworkCommand(o),
		newTargetNetworkTailCommand(o),
		newNetworkBeginCommand(o),
		newNetworkEndCommand(o),
		newNetworkCheckCommand(o),
		newNetworkQueryCommand(o),
		newNetworkExportCommand(o),
		newNetworkExportListCommand(o),
		newNetworkExportPruneCommand(o),
	}
}

var targetNetworkLong = templates.LongDesc(`
	Capture network activity for a bounded window against an
	already-resolved target, the synchronous counterpart to
	network-begin/-end (spec §4.5).`)

// newTargetNetworkCommand implements the synchronous `target network` mode:
// resolve the target once, listen for Defaults.CaptureDuration(), and
// return everything captured.
func newTargetNetworkCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		common          commonFlags
		profile         string
		captureMs       int64
		urlContains     string
		methods         []string
		resourceTypes   []string
		statusClass     string
		failedOnly      bool
		redactPatterns  []string
		reloadBeforeRun bool
	)
	cmd := &cobra.Command{
		Use:                   "network",
		DisableFlagsInUseLine: true,
		Short:                 "Capture network activity for a bounded window",
		Long:                  targetNetworkLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, common.Pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()

			handle, err := rt.runner().ResolveForCapture(ctx, common.request())
			if err != nil {
				return emit(o.Out, common.Pretty, nil, err)
			}
			defer handle.Close()

			defaults := network.ResolveDefaults(network.Profile(profile))
			if captureMs > 0 {
				if verr := network.ValidateCaptureMs(captureMs, defaults.CaptureMs); verr != nil {
					return emit(o.Out, common.Pretty, nil, verr)
				}
				defaults.CaptureMs = captureMs
			}
			defaults = defaults.Clamp()

			result, err := network.RunSynchronous(ctx, handle.Resolved, network.SynchronousRequest{
				Profile: network.Profile(profile),
				Defaults: defaults,
				Filter: network.Filter{
					URLContains:   urlContains,
					Methods:       methods,
					ResourceTypes: resourceTypes,
					StatusClass:   statusClass,
					FailedOnly:    failedOnly,
				},
				RedactPatterns:  redactPatterns,
				ReloadBeforeRun: reloadBeforeRun,
			})
			return emit(o.Out, common.Pretty, result, err)
		},
	}
	common.register(cmd.Flags())
	cmd.Flags().StringVar(&profile, "profile", string(network.ProfileCustom), "custom|api|page|ws|perf")
	cmd.Flags().Int64Var(&captureMs, "capture-ms", 0, "capture window override in milliseconds")
	cmd.Flags().StringVar(&urlContains, "url-contains", "", "only keep records whose URL contains this substring")
	cmd.Flags().StringSliceVar(&methods, "method", nil, "only keep records with this HTTP method (repeatable)")
	cmd.Flags().StringSliceVar(&resourceTypes, "resource-type", nil, "only keep records of this resource type (repeatable)")
	cmd.Flags().StringVar(&statusClass, "status-class", "", "2xx|3xx|4xx|5xx")
	cmd.Flags().BoolVar(&failedOnly, "failed-only", false, "only keep failed requests")
	cmd.Flags().StringSliceVar(&redactPatterns, "redact", nil, "regex pattern to redact from header/body values (repeatable)")
	cmd.Flags().BoolVar(&reloadBeforeRun, "reload-before-run", false, "reload the page before starting the capture window")
	return cmd
}

// tailEndRecord is the NDJSON sentinel spec §6.3 requires to close a
// `network-tail` stream.
type tailEndRecord struct {
	Type    string `json:"type"`
	Records int    `json:"records"`
}

// newTargetNetworkTailCommand implements the streaming `target
// network-tail` mode: records are written to stdout as NDJSON as soon as
// they finalize, until the caller cancels (e.g. SIGINT).
func newTargetNetworkTailCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		common         commonFlags
		profile        string
		urlContains    string
		redactPatterns []string
	)
	cmd := &cobra.Command{
		Use:                   "network-tail",
		DisableFlagsInUseLine: true,
		Short:                 "Stream network records as NDJSON until cancelled",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, common.Pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()

			handle, err := rt.runner().ResolveForCapture(ctx, common.request())
			if err != nil {
				return emit(o.Out, common.Pretty, nil, err)
			}
			defer handle.Close()

			defaults := network.ResolveDefaults(network.Profile(profile)).Clamp()
			records, err := network.RunTail(ctx, handle.Resolved, network.TailRequest{
				Profile:        network.Profile(profile),
				Defaults:       defaults,
				Filter:         network.Filter{URLContains: urlContains},
				RedactPatterns: redactPatterns,
				Writer:         o.Out,
			})
			if err != nil {
				return emit(o.Out, common.Pretty, nil, err)
			}
			enc := json.NewEncoder(o.Out)
			return enc.Encode(tailEndRecord{Type: "capture.end", Records: len(records)})
		},
	}
	common.register(cmd.Flags())
	cmd.Flags().StringVar(&profile, "profile", string(network.ProfileCustom), "custom|api|page|ws|perf")
	cmd.Flags().StringVar(&urlContains, "url-contains", "", "only keep records whose URL contains this substring")
	cmd.Flags().StringSliceVar(&redactPatterns, "redact", nil, "regex pattern to redact from header/body values (repeatable)")
	return cmd
}

func newNetworkBeginCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		sessionID      string
		targetID       string
		profile        string
		maxRuntimeMs   int64
		redactPatterns []string
		pretty         bool
	)
	cmd := &cobra.Command{
		Use:                   "network-begin",
		DisableFlagsInUseLine: true,
		Short:                 "Start a background network capture on a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()

			if sessionID == "" || targetID == "" {
				return emit(o.Out, pretty, nil, errs.New(errs.CodeSessionIDInvalid, "--session and --target are required"))
			}
			sess, ok := rt.store.Read().Sessions[sessionID]
			if !ok {
				return emit(o.Out, pretty, nil, errs.New(errs.CodeSessionNotFound, "session %q not found", sessionID))
			}
			ensured, err := rt.sess.EnsureReachable(ctx, sess)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			probe := session.Probe(ctx, ensured.Session.CDPOrigin, rt.cfg.CDPProbeTimeout, rt.cfg.CDPProbeTimeoutFallback)
			if !probe.Reachable {
				return emit(o.Out, pretty, nil, errs.New(errs.CodeCDPUnreachable, "CDP endpoint %s is unreachable", ensured.Session.CDPOrigin))
			}

			executable, err := os.Executable()
			if err != nil {
				return emit(o.Out, pretty, nil, errs.Wrap(errs.CodeInternal, err, "failed to resolve running executable"))
			}
			defaults := network.ResolveDefaults(network.Profile(profile)).Clamp()

			var cap *state.NetworkCapture
			var beginErr error
			_, err = state.Update(rt.store, func(st *state.SurfwrightState) struct{} {
				cap, beginErr = network.Begin(st, sessionID, network.BeginOptions{
					StateDir:         rt.cfg.StateDir,
					ExecutablePath:   executable,
					WorkerSubcommand: networkWorkerSubcommand,
					WebSocketURL:     probe.WebSocketDebuggerURL,
					TargetID:         targetID,
					Profile:          network.Profile(profile),
					Defaults:         defaults,
					RedactPatterns:   redactPatterns,
					MaxRuntimeMs:     maxRuntimeMs,
				})
				return struct{}{}
			})
			if err == nil {
				err = beginErr
			}
			return emit(o.Out, pretty, cap, err)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id owning the target (required)")
	cmd.Flags().StringVar(&targetID, "target", "", "target id to capture (required)")
	cmd.Flags().StringVar(&profile, "profile", string(network.ProfileCustom), "custom|api|page|ws|perf")
	cmd.Flags().Int64Var(&maxRuntimeMs, "max-runtime-ms", 0, "hard cap on the capture's runtime")
	cmd.Flags().StringSliceVar(&redactPatterns, "redact", nil, "regex pattern to redact from header/body values (repeatable)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func lookupCapture(rt *runtime, captureID string) (state.NetworkCapture, error) {
	cap, ok := rt.store.Read().Captures[captureID]
	if !ok {
		return state.NetworkCapture{}, errs.New(errs.CodeCaptureNotFound, "capture %q not found", captureID)
	}
	return cap, nil
}

func newNetworkEndCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		captureID string
		pretty    bool
	)
	cmd := &cobra.Command{
		Use:                   "network-end",
		DisableFlagsInUseLine: true,
		Short:                 "Signal a background network capture to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			cap, err := lookupCapture(rt, captureID)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			err = network.RequestStop(cap)
			return emit(o.Out, pretty, map[string]string{"captureId": captureID, "status": "stop-requested"}, err)
		},
	}
	cmd.Flags().StringVar(&captureID, "capture", "", "capture id to stop (required)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

// networkCheckResult is network-check's envelope payload: capture status,
// and the worker's result once done.
type networkCheckResult struct {
	CaptureID string                `json:"captureId"`
	Done      bool                  `json:"done"`
	Result    *network.WorkerResult `json:"result,omitempty"`
}

func newNetworkCheckCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		captureID string
		pretty    bool
	)
	cmd := &cobra.Command{
		Use:                   "network-check",
		DisableFlagsInUseLine: true,
		Short:                 "Poll a background network capture for completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			cap, err := lookupCapture(rt, captureID)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			result := networkCheckResult{CaptureID: captureID, Done: network.IsDone(cap)}
			if result.Done {
				res, err := network.ReadResult(cap)
				if err != nil {
					return emit(o.Out, pretty, nil, err)
				}
				result.Result = res
			}
			return emit(o.Out, pretty, result, nil)
		},
	}
	cmd.Flags().StringVar(&captureID, "capture", "", "capture id to poll (required)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newNetworkQueryCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		captureID string
		view      string
		pretty    bool
	)
	cmd := &cobra.Command{
		Use:                   "network-query",
		DisableFlagsInUseLine: true,
		Short:                 "Project a finished capture's records as raw, summary, or table",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			cap, err := lookupCapture(rt, captureID)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			if !network.IsDone(cap) {
				return emit(o.Out, pretty, nil, errs.New(errs.CodeCaptureConflict, "capture %q has not finished yet", captureID))
			}
			res, err := network.ReadResult(cap)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			projection := network.Project(network.View(view), res.Records, res.TimedOut)
			return emit(o.Out, pretty, projection, nil)
		},
	}
	cmd.Flags().StringVar(&captureID, "capture", "", "capture id to query (required)")
	cmd.Flags().StringVar(&view, "view", string(network.ViewSummary), "raw|summary|table")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newNetworkExportCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		captureID      string
		sessionID      string
		targetID       string
		format         string
		browserVersion string
		pretty         bool
	)
	cmd := &cobra.Command{
		Use:                   "network-export",
		DisableFlagsInUseLine: true,
		Short:                 "Write a finished capture's records to a HAR or JSON artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			cap, err := lookupCapture(rt, captureID)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			if !network.IsDone(cap) {
				return emit(o.Out, pretty, nil, errs.New(errs.CodeCaptureConflict, "capture %q has not finished yet", captureID))
			}
			res, err := network.ReadResult(cap)
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			var artifact *state.NetworkArtifact
			var exportErr error
			_, err = state.Update(rt.store, func(st *state.SurfwrightState) struct{} {
				artifact, exportErr = network.Export(ctx, st, network.ExportRequest{
					StateDir:       rt.cfg.StateDir,
					SessionID:      sessionID,
					TargetID:       targetID,
					CaptureID:      captureID,
					Format:         network.ExportFormat(format),
					Records:        res.Records,
					BrowserVersion: browserVersion,
				})
				return struct{}{}
			})
			if err == nil {
				err = exportErr
			}
			return emit(o.Out, pretty, artifact, err)
		},
	}
	cmd.Flags().StringVar(&captureID, "capture", "", "capture id to export (required)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id the capture belongs to")
	cmd.Flags().StringVar(&targetID, "target", "", "target id the capture belongs to")
	cmd.Flags().StringVar(&format, "format", string(network.FormatHAR), "har|json")
	cmd.Flags().StringVar(&browserVersion, "browser-version", "", "browser version string recorded in the HAR creator block")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newNetworkExportListCommand(o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "network-export-list",
		DisableFlagsInUseLine: true,
		Short:                 "List persisted network export artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			st := rt.store.Read()
			artifacts := make([]state.NetworkArtifact, 0, len(st.Artifacts))
			for _, art := range st.Artifacts {
				artifacts = append(artifacts, art)
			}
			return emit(o.Out, pretty, artifacts, nil)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newNetworkExportPruneCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		maxCount   int
		maxBytes   int64
		maxAgeDays int
		keepFiles  bool
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:                   "network-export-prune",
		DisableFlagsInUseLine: true,
		Short:                 "Evict network export artifacts beyond a count, size, or age ceiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			result, err := state.Update(rt.store, func(st *state.SurfwrightState) network.PruneResult {
				return network.Prune(st, network.PruneOptions{
					MaxCount:   maxCount,
					MaxBytes:   maxBytes,
					MaxAgeDays: maxAgeDays,
					KeepFiles:  keepFiles,
				})
			})
			return emit(o.Out, pretty, result, err)
		},
	}
	cmd.Flags().IntVar(&maxCount, "max-count", 0, "maximum number of artifacts to retain (0: unlimited)")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "maximum total artifact bytes to retain (0: unlimited)")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "maximum artifact age in days (0: unlimited)")
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "drop artifacts from state without deleting their backing files")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}
