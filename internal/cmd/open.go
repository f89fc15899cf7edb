package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/pipeline"
)

var openLong = templates.LongDesc(`
	Navigate an existing target to a URL, or create a new target when
	none is addressed (spec §4.4, §6.1's top-level open verb).`)

var openExamples = templates.Examples(`
	# Open a URL in a fresh managed session
	surfwright open https://example.com

	# Navigate the session's current target and wait for network idle
	surfwright open https://example.com --session default --wait-network-idle`)

// NewOpenCommand navigates to a URL, reusing the pipeline dispatch table so
// its field shape stays identical to the "open" plan step.
func NewOpenCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		common          commonFlags
		newTarget       bool
		waitNetworkIdle bool
		waitTimeoutMs   int64
	)

	cmd := &cobra.Command{
		Use:                   "open <url>",
		DisableFlagsInUseLine: true,
		Short:                 "Navigate a target to a URL",
		Long:                  openLong,
		Example:               openExamples,
		Args:                  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, common.Pretty, nil, err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			fields := map[string]any{
				"url":             args[0],
				"newTarget":       newTarget,
				"waitNetworkIdle": waitNetworkIdle,
				"waitTimeoutMs":   float64(waitTimeoutMs),
			}

			report, err := pipeline.Dispatch(ctx, rt.runner(), common.request(), "open", fields)
			return emit(o.Out, common.Pretty, report, err)
		},
	}

	common.register(cmd.Flags())
	cmd.Flags().BoolVar(&newTarget, "new-target", false, "open in a freshly created target instead of reusing the resolved one")
	cmd.Flags().BoolVar(&waitNetworkIdle, "wait-network-idle", false, "wait for network idle after navigation")
	cmd.Flags().Int64Var(&waitTimeoutMs, "wait-timeout-ms", 0, "timeout for --wait-network-idle")

	return cmd
}
