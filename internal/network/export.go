package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
	"github.com/surfwright/surfwright/internal/storage"
)

// ExportFormat names an artifact's on-disk encoding.
type ExportFormat string

const (
	FormatHAR ExportFormat = "har"
	FormatJSON ExportFormat = "json"
)

// ExportRequest describes one artifact write (spec §4.5 export paths).
type ExportRequest struct {
	StateDir       string
	SessionID      string
	TargetID       string
	CaptureID      string
	Format         ExportFormat
	Records        []Record
	BrowserVersion string
	Mirror         storage.ArtifactMirror // optional; nil skips the remote mirror step
}

// Export writes records to <StateDir>/artifacts/<id>.<format>, allocates an
// artifact id in st, optionally mirrors the file via Mirror, and returns the
// persisted state.NetworkArtifact. Call from within a state.Update mutator.
func Export(ctx context.Context, st *state.SurfwrightState, req ExportRequest) (*state.NetworkArtifact, error) {
	payload, err := encode(req.Format, req.Records, req.BrowserVersion)
	if err != nil {
		return nil, err
	}

	artifactID := state.AllocateArtifactID(st)
	dir := filepath.Join(req.StateDir, "artifacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeStateLockIO, err, "failed to create artifacts directory %q", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s", artifactID, req.Format))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, errs.Wrap(errs.CodeStateLockIO, err, "failed to write artifact file %q", path)
	}

	artifact := state.NetworkArtifact{
		ArtifactID: artifactID,
		CreatedAt:  time.Now(),
		Format:     string(req.Format),
		Path:       path,
		SessionID:  req.SessionID,
		TargetID:   req.TargetID,
		CaptureID:  req.CaptureID,
		Entries:    len(req.Records),
		Bytes:      int64(len(payload)),
	}

	if req.Mirror != nil {
		result, err := req.Mirror.Mirror(ctx, &storage.MirrorRequest{
			ArtifactPath: fmt.Sprintf("artifacts/%s/%s", req.SessionID, filepath.Base(path)),
			Content:      bytes.NewReader(payload),
			ContentType:  "application/json",
		})
		if err == nil {
			artifact.MirrorURL = result.SignedURL
		}
		// A mirror failure is non-fatal (spec §6 supplemental): the local
		// artifact still exists and MirrorURL simply stays empty.
	}

	st.Artifacts[artifactID] = artifact
	return &artifact, nil
}

func encode(format ExportFormat, records []Record, browserVersion string) ([]byte, error) {
	switch format {
	case FormatHAR:
		h := ExportHAR(records, browserVersion, "0.1.0")
		data, err := json.MarshalIndent(h, "", "  ")
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err, "failed to marshal HAR")
		}
		return data, nil
	case FormatJSON:
		fallthrough
	default:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err, "failed to marshal records")
		}
		return data, nil
	}
}
