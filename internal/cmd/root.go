package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		SurfWright is a deterministic command-line automation layer over
		headless/headed Chromium: open a URL, list page targets, snapshot/
		read/find/click/fill/wait/extract/eval, and capture/export network
		activity, all through a stable JSON contract.`)

	rootExamples = templates.Examples(`
		# Open a URL in a fresh managed session
		surfwright open https://example.com

		# Run a declarative plan and print its result
		surfwright run --plan-path ./plan.json`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// SurfwrightOptions holds the streams shared by every subcommand.
type SurfwrightOptions struct {
	iooption.IOStreams
}

// NewSurfwrightOptions provides an initialised SurfwrightOptions instance.
func NewSurfwrightOptions(streams iooption.IOStreams) *SurfwrightOptions {
	return &SurfwrightOptions{IOStreams: streams}
}

// NewRootCommand creates the `surfwright` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewSurfwrightOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})
	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `surfwright` command and its nested
// children.
func NewRootCommandWithArgs(o *SurfwrightOptions) *cobra.Command {
	root := &cobra.Command{
		Use:                   "surfwright [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Deterministic browser automation over Chrome DevTools Protocol",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	warn := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	root.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(warn))

	root.AddCommand(NewDoctorCommand(o))
	root.AddCommand(NewContractCommand(root, o))
	root.AddCommand(NewOpenCommand(o))
	root.AddCommand(NewRunCommand(o))
	root.AddCommand(NewServeCommand(o))
	root.AddCommand(NewSessionCommand(o))
	root.AddCommand(NewTargetCommand(o))
	root.AddCommand(NewStateCommand(o))
	root.AddCommand(NewNetworkWorkerCommand(o))

	// The global normalisation function ensures that all flags specified
	// meet the desired format, changing users' input if necessary.
	root.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return root
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
