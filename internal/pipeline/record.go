package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
)

// RecordArtifact is what `--record` persists: the plan as executed, replay
// metadata, and the final report, enough to feed back into
// `--replay-path` (spec §4.6).
type RecordArtifact struct {
	RecordID   string    `json:"recordId"`
	RecordedAt time.Time `json:"recordedAt"`
	Label      string    `json:"label,omitempty"`
	SessionID  string    `json:"sessionId"`
	Source     Source    `json:"source"`
	Plan       Plan      `json:"plan"`
	Result     *RunResult `json:"result,omitempty"`
}

// WriteRecord persists a RecordArtifact to path (or, if path is empty, to
// "<stateDir>/artifacts/pipeline-<recordId>.json") and indexes it in state
// via the shared NetworkArtifact entry shape (spec §6.2: "their index lives
// inside state.json").
func WriteRecord(st *state.Store, stateDir, path, label, sessionID string, plan Plan, source Source, result *RunResult) (*state.NetworkArtifact, error) {
	recordID := uuid.New().String()
	artifact := RecordArtifact{
		RecordID:   recordID,
		RecordedAt: time.Now().UTC(),
		Label:      label,
		SessionID:  sessionID,
		Source:     source,
		Plan:       plan,
		Result:     result,
	}

	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to encode pipeline record")
	}

	outPath := path
	if outPath == "" {
		outPath = filepath.Join(stateDir, "artifacts", "pipeline-"+recordID+".json")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to create artifact directory")
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to write pipeline record to %q", outPath)
	}

	var entry *state.NetworkArtifact
	_, err = state.Update(st, func(s *state.SurfwrightState) struct{} {
		id := state.AllocateArtifactID(s)
		a := state.NetworkArtifact{
			ArtifactID: id,
			CreatedAt:  artifact.RecordedAt,
			Format:     "pipeline-record",
			Path:       outPath,
			SessionID:  sessionID,
			Entries:    len(plan.Steps),
			Bytes:      int64(len(raw)),
		}
		s.Artifacts[id] = a
		entry = &a
		return struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
