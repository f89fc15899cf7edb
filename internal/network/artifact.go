package network

import (
	"os"
	"sort"
	"time"

	"github.com/surfwright/surfwright/internal/state"
)

// PruneOptions bounds how many artifacts (and how much disk) the state
// directory may accumulate (spec §4.5's artifact pruning).
type PruneOptions struct {
	MaxCount   int
	MaxBytes   int64
	MaxAgeDays int
	KeepFiles  bool
}

// PruneResult reports what pruning removed.
type PruneResult struct {
	RemovedArtifactIDs []string `json:"removedArtifactIds"`
	FreedBytes         int64    `json:"freedBytes"`
}

// Prune selects artifacts to drop from st.Artifacts according to opts and,
// unless KeepFiles, best-effort removes their backing files. Selection
// order: artifacts whose file is already missing go first, then oldest by
// CreatedAt, until the count/byte ceilings are satisfied.
//
// Grounded on internal/storage's plain os.* file handling (disk.go); no
// example repo in the pack implements retention/pruning, so the
// missing-file -> age -> count -> size ordering follows directly from the
// spec's own stated priority rather than an example.
func Prune(st *state.SurfwrightState, opts PruneOptions) PruneResult {
	type candidate struct {
		id      string
		art     state.NetworkArtifact
		missing bool
	}

	candidates := make([]candidate, 0, len(st.Artifacts))
	var totalBytes int64
	for id, art := range st.Artifacts {
		_, err := os.Stat(art.Path)
		candidates = append(candidates, candidate{id: id, art: art, missing: err != nil})
		totalBytes += art.Bytes
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].missing != candidates[j].missing {
			return candidates[i].missing // missing-file artifacts first
		}
		return candidates[i].art.CreatedAt.Before(candidates[j].art.CreatedAt)
	})

	result := PruneResult{}
	remaining := len(candidates)
	var ageCutoff time.Time
	if opts.MaxAgeDays > 0 {
		ageCutoff = time.Now().AddDate(0, 0, -opts.MaxAgeDays)
	}

	for _, c := range candidates {
		overCount := opts.MaxCount > 0 && remaining > opts.MaxCount
		overBytes := opts.MaxBytes > 0 && totalBytes > opts.MaxBytes
		tooOld := !ageCutoff.IsZero() && c.art.CreatedAt.Before(ageCutoff)
		if !c.missing && !overCount && !overBytes && !tooOld {
			break
		}

		delete(st.Artifacts, c.id)
		result.RemovedArtifactIDs = append(result.RemovedArtifactIDs, c.id)
		result.FreedBytes += c.art.Bytes
		totalBytes -= c.art.Bytes
		remaining--

		if !c.missing && !opts.KeepFiles {
			_ = os.Remove(c.art.Path)
		}
	}

	return result
}
