package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/pipeline"
)

var runLong = templates.LongDesc(`
	Execute a declarative plan: a sequence of action-set steps with
	per-step assertions, a repeat-until construct, and plan-level
	result/require projections (spec §4.6).

	Exactly one of --plan-path, --plan-json, --replay-path, or stdin
	supplies the plan.`)

var runExamples = templates.Examples(`
	# Run a plan from a file
	surfwright run --plan-path ./plan.json

	# Lint a plan without executing it
	surfwright run --plan-path ./plan.json --doctor

	# Replay a previously recorded artifact
	surfwright run --replay-path ./run.record.json`)

// NewRunCommand executes a plan end to end (or lints it in --doctor mode).
func NewRunCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		planPath    string
		planJSON    string
		replayPath  string
		useStdin    bool
		doctorMode  bool
		sessionID   string
		targetID    string
		stateDir    string
		record      bool
		recordPath  string
		recordLabel string
		pretty      bool
	)

	cmd := &cobra.Command{
		Use:                   "run",
		DisableFlagsInUseLine: true,
		Short:                 "Execute a declarative plan",
		Long:                  runLong,
		Example:               runExamples,
		RunE: func(cmd *cobra.Command, args []string) error {
			acquire := pipeline.AcquireOptions{
				PlanPath:   planPath,
				PlanJSON:   planJSON,
				UseStdin:   useStdin,
				Stdin:      o.In,
				ReplayPath: replayPath,
				ReadFile:   os.ReadFile,
			}

			if doctorMode {
				result, err := pipeline.Doctor(acquire)
				return emit(o.Out, pretty, result, err)
			}

			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			opts := pipeline.RunOptions{
				Acquire:     acquire,
				SessionID:   sessionID,
				TargetID:    targetID,
				StateDir:    stateDir,
				Record:      record,
				RecordPath:  recordPath,
				RecordLabel: recordLabel,
			}
			result, err := pipeline.Run(ctx, rt.runner(), rt.store, opts)
			return emit(o.Out, pretty, result, err)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&planPath, "plan-path", "", "read the plan from a file")
	flags.StringVar(&planJSON, "plan-json", "", "read the plan from an inline JSON string")
	flags.StringVar(&replayPath, "replay-path", "", "replay a previously recorded run artifact")
	flags.BoolVar(&useStdin, "stdin", false, "read the plan from stdin")
	flags.BoolVar(&doctorMode, "doctor", false, "lint the plan without executing it")
	flags.StringVar(&sessionID, "session", "", "session id to act on (default: the implicit default session)")
	flags.StringVar(&targetID, "target", "", "target id to act on (default: the session's last-active target)")
	flags.StringVar(&stateDir, "state-dir", "", "override the state directory for this run")
	flags.BoolVar(&record, "record", false, "record the run to a replayable artifact")
	flags.StringVar(&recordPath, "record-path", "", "path to write the record artifact (default: state dir's runs directory)")
	flags.StringVar(&recordLabel, "record-label", "", "a human label stored alongside the record artifact")
	flags.BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")

	return cmd
}
