package cmd

import (
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/network"
	"github.com/surfwright/surfwright/internal/state"
)

var stateLong = templates.LongDesc(`
	Maintain the state document directly: reconcile orphaned targets and
	stale pids (spec §3, §8), or prune accumulated network export
	artifacts (spec §4.5).`)

// NewStateCommand groups direct state-document maintenance subcommands.
func NewStateCommand(o *SurfwrightOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "state",
		DisableFlagsInUseLine: true,
		Short:                 "Maintain the state document",
		Long:                  stateLong,
	}

	cmd.AddCommand(newStateReconcileCommand(o))
	cmd.AddCommand(newStateDiskPruneCommand(o))

	return cmd
}

func newStateReconcileCommand(o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "reconcile",
		DisableFlagsInUseLine: true,
		Short:                 "Evict orphaned targets and repair stale browser pids",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			report, err := state.Update(rt.store, func(st *state.SurfwrightState) state.ReconcileReport {
				return state.Reconcile(st, pidAlive)
			})
			return emit(o.Out, pretty, report, err)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newStateDiskPruneCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		maxCount   int
		maxBytes   int64
		maxAgeDays int
		keepFiles  bool
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:                   "disk-prune",
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

// pidAlive probes whether pid still refers to a live process, the same
// signal-0 liveness check internal/session uses for its own managed
// processes.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
