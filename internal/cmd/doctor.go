package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/session"
)

var doctorLong = templates.LongDesc(`
	Check prerequisites without opening a browser: a candidate browser
	executable is discoverable, and the state directory is writable.`)

// doctorReport is the `doctor` command's output (spec §6.1's "auxiliary"
// doctor prerequisite checks).
type doctorReport struct {
	BrowserFound     bool   `json:"browserFound"`
	BrowserPath      string `json:"browserPath,omitempty"`
	StateDir         string `json:"stateDir"`
	StateDirWritable bool   `json:"stateDirWritable"`
}

// NewDoctorCommand reports whether SurfWright's prerequisites are met,
// without launching or attaching to a browser.
func NewDoctorCommand(o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "doctor",
		DisableFlagsInUseLine: true,
		Short:                 "Check that a browser and writable state directory are available",
		Long:                  doctorLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runDoctor()
			return emit(o.Out, pretty, report, err)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func runDoctor() (*doctorReport, error) {
	rt, err := newRuntime()
	if err != nil {
		return nil, err
	}

	report := &doctorReport{StateDir: rt.cfg.StateDir}

	candidates := rt.cfg.BrowserCandidates
	if len(candidates) == 0 {
		candidates = session.DefaultCandidates()
	}
	if path, ok := session.Discover(candidates); ok {
		report.BrowserFound = true
		report.BrowserPath = path
	}

	probePath := filepath.Join(rt.cfg.StateDir, ".doctor-probe")
	if err := os.MkdirAll(rt.cfg.StateDir, 0o755); err == nil {
		if f, err := os.Create(probePath); err == nil {
			f.Close()
			os.Remove(probePath)
			report.StateDirWritable = true
		}
	}

	return report, nil
}
