package network

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfwright/surfwright/internal/state"
)

func TestPruneRemovesArtifactsWithMissingFiles(t *testing.T) {
	st := state.Empty()
	st.Artifacts["na-1"] = state.NetworkArtifact{ArtifactID: "na-1", Path: "/does/not/exist", CreatedAt: time.Now()}

	result := Prune(&st, PruneOptions{})
	assert.Contains(t, result.RemovedArtifactIDs, "na-1")
	assert.NotContains(t, st.Artifacts, "na-1")
}

func TestPruneEnforcesMaxCountOldestFirst(t *testing.T) {
	dir := t.TempDir()
	st := state.Empty()
	for i, age := range []int{2, 1, 0} {
		path := filepath.Join(dir, string(rune('a'+i)))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		st.Artifacts[path] = state.NetworkArtifact{
			ArtifactID: path,
			Path:       path,
			CreatedAt:  time.Now().Add(-time.Duration(age) * time.Hour),
			Bytes:      1,
		}
	}

	result := Prune(&st, PruneOptions{MaxCount: 1})
	assert.Len(t, st.Artifacts, 1)
	assert.Len(t, result.RemovedArtifactIDs, 2)
	assert.Contains(t, st.Artifacts, filepath.Join(dir, "c"))
}

func TestPruneKeepFilesSkipsRemoval(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older")
	newer := filepath.Join(dir, "newer")
	require.NoError(t, os.WriteFile(older, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0o644))

	st := state.Empty()
	st.Artifacts["na-1"] = state.NetworkArtifact{ArtifactID: "na-1", Path: older, CreatedAt: time.Now().Add(-time.Hour), Bytes: 1}
	st.Artifacts["na-2"] = state.NetworkArtifact{ArtifactID: "na-2", Path: newer, CreatedAt: time.Now(), Bytes: 1}

	result := Prune(&st, PruneOptions{MaxCount: 1, KeepFiles: true})
	assert.Contains(t, result.RemovedArtifactIDs, "na-1")
	_, err := os.Stat(older)
	assert.NoError(t, err, "KeepFiles must leave the backing file in place")
}
