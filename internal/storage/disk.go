package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// LocalArtifactMirror mirrors network artifacts to a directory on the local
// filesystem. The signed URL returned is a file:// URL - there is no expiry
// concept for local files, so ExpiresAt is set to the zero value.
type LocalArtifactMirror struct {
	baseDir string
}

// NewLocalArtifactMirror creates a LocalArtifactMirror that writes artifacts
// under baseDir. The directory is created if it does not already exist.
func NewLocalArtifactMirror(baseDir string) (*LocalArtifactMirror, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &LocalArtifactMirror{baseDir: abs}, nil
}

// Mirror writes content to baseDir/artifactPath, creating any intermediate
// directories as needed. The returned SignedURL is a file:// URL pointing to
// the written file.
func (m *LocalArtifactMirror) Mirror(_ context.Context, req *MirrorRequest) (*MirrorResult, error) {
	dest := filepath.Join(m.baseDir, filepath.FromSlash(req.ArtifactPath))

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", req.ArtifactPath, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, req.Content); err != nil {
		return nil, fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}

	fileURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}

	return &MirrorResult{
		ArtifactPath: req.ArtifactPath,
		SignedURL:    fileURL.String(),
		ExpiresAt:    time.Time{},
	}, nil
}
