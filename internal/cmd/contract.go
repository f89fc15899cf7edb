package cmd

import (
	"github.com/spf13/cobra"

	"github.com/surfwright/surfwright/internal/contract"
)

// NewContractCommand reports the command and error taxonomy surface this
// binary exposes, fingerprinted so callers can detect drift between
// releases (spec §6.1's `contract` command).
func NewContractCommand(root *cobra.Command, o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "contract",
		DisableFlagsInUseLine: true,
		Short:                 "Print the command and error contract surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest := contract.BuildManifest(root, "surfwright", versionInfo())
			return emit(o.Out, pretty, manifest, nil)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}
