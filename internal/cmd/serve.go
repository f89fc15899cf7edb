package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/httpapi"
)

var serveLong = templates.LongDesc(`
	Run a supplemental async HTTP surface in front of the Pipeline
	Executor and handle-based network capture: POST a plan or a capture
	request, then poll its job id for completion (SPEC_FULL.md §6).

	This surface is additive — every capability it exposes is also
	reachable through the synchronous CLI commands.`)

// NewServeCommand starts the async HTTP job surface.
func NewServeCommand(o *SurfwrightOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:                   "serve",
		DisableFlagsInUseLine: true,
		Short:                 "Run the supplemental async HTTP job surface",
		Long:                  serveLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, false, nil, err)
			}

			store := httpapi.NewMemoryStore()
			server := httpapi.New(store, rt.store, rt.sess, rt.runner(), networkWorkerSubcommand)

			fmt.Fprintf(o.ErrOut, "surfwright serve: listening on %s\n", addr)
			if err := server.ListenAndServe(addr); err != nil {
				return emit(o.Out, false, nil, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "address to listen on")

	return cmd
}
