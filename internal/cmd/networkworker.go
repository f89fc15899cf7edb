package cmd

import (
	"github.com/spf13/cobra"

	"github.com/surfwright/surfwright/internal/network"
)

// NewNetworkWorkerCommand is the hidden entrypoint network.Begin re-execs
// this binary with: load the job file, run the capture loop to
// completion, and write the result (spec §4.5's handle-based mode).
func NewNetworkWorkerCommand(o *SurfwrightOptions) *cobra.Command {
	var jobPath string

	cmd := &cobra.Command{
		Use:    networkWorkerSubcommand,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := network.ReadJob(jobPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			result := network.RunWorkerLoop(ctx, *job)
			return network.WriteResult(*job, result)
		},
	}
	cmd.Flags().StringVar(&jobPath, "job-path", "", "path to the worker job file")

	return cmd
}
