// Package contract builds the `contract` command's manifest (spec §6.1): a
// sha256-fingerprinted snapshot of the registered command tree and the
// error taxonomy, so an agentic caller can detect a build drift without
// parsing help text.
package contract

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/surfwright/surfwright/internal/errs"
)

// ContractSchemaVersion is bumped whenever the Manifest's own shape
// changes, independent of SurfWright's release version.
const ContractSchemaVersion = "1"

// CommandEntry describes one node in the registered command tree.
type CommandEntry struct {
	ID      string `json:"id"`
	Usage   string `json:"usage"`
	Summary string `json:"summary"`
}

// ErrorEntry describes one entry in the stable error taxonomy.
type ErrorEntry struct {
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// Manifest is the `contract` command's full output shape (spec §6.1).
type Manifest struct {
	Name                  string         `json:"name"`
	Version               string         `json:"version"`
	ContractSchemaVersion string         `json:"contractSchemaVersion"`
	ContractFingerprint   string         `json:"contractFingerprint"`
	Guarantees            []string       `json:"guarantees"`
	Commands              []CommandEntry `json:"commands"`
	Errors                []ErrorEntry   `json:"errors"`
	Guidance              []string       `json:"guidance"`
}

var guarantees = []string{
	"every command emits exactly one JSON object to stdout on its own line",
	"success envelopes set ok:true; failure envelopes set ok:false with a stable code",
	"no command ever exits non-zero without also emitting a failure envelope",
	"commands and error codes are additive across minor versions; a code is never repurposed",
}

var guidance = []string{
	"call `doctor` before relying on a managed browser to catch missing prerequisites early",
	"call `run --doctor` to lint a plan without touching a browser",
	"prefer target ids returned by prior steps over `--nth` indices across long-running sessions",
	"treat `retryable:true` errors as safe to retry with backoff; all others need caller intervention",
}

// BuildManifest walks root's registered command tree and the full error
// taxonomy to assemble a fingerprinted Manifest. root is expected to be the
// fully wired top-level command (all subcommands already added).
func BuildManifest(root *cobra.Command, name, version string) *Manifest {
	commands := collectCommands(root)
	errEntries := collectErrors()

	m := &Manifest{
		Name:                  name,
		Version:               version,
		ContractSchemaVersion: ContractSchemaVersion,
		Guarantees:            guarantees,
		Commands:              commands,
		Errors:                errEntries,
		Guidance:              guidance,
	}
	m.ContractFingerprint = Fingerprint(commands, errEntries)
	return m
}

// collectCommands walks the cobra tree depth-first, skipping hidden and
// bookkeeping commands (help, completion), and returns every node sorted by
// its full, space-joined path.
func collectCommands(root *cobra.Command) []CommandEntry {
	var out []CommandEntry
	var walk func(cmd *cobra.Command, path string)
	walk = func(cmd *cobra.Command, path string) {
		for _, c := range cmd.Commands() {
			if c.Hidden || c.Name() == "help" || c.Name() == "completion" {
				continue
			}
			id := c.Name()
			if path != "" {
				id = path + " " + c.Name()
			}
			out = append(out, CommandEntry{ID: id, Usage: c.UseLine(), Summary: c.Short})
			walk(c, id)
		}
	}
	walk(root, "")

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// collectErrors enumerates the full, stable error taxonomy in errs.
func collectErrors() []ErrorEntry {
	codes := errs.AllCodes()
	out := make([]ErrorEntry, 0, len(codes))
	for _, code := range codes {
		out = append(out, ErrorEntry{Code: string(code), Retryable: errs.IsRetryable(code)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
