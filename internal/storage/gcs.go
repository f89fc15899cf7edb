// Package storage mirrors persisted NetworkArtifact files (HAR exports,
// pipeline records, spec §3/§4.5) to a remote backend and returns
// time-limited signed URLs for NetworkArtifact.MirrorURL. GCS and local
// disk implementations are provided; no command constructs either.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const signedURLTTL = 1 * time.Hour

// GCSArtifactMirror mirrors network artifacts to a Google Cloud Storage
// bucket.
type GCSArtifactMirror struct {
	client *storage.Client
	bucket string
}

// NewGCSArtifactMirror creates a GCSArtifactMirror for the given bucket.
// opts are passed through to the underlying GCS client, allowing credential
// injection.
func NewGCSArtifactMirror(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSArtifactMirror, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSArtifactMirror{client: client, bucket: bucket}, nil
}

// Mirror writes content to GCS at artifactPath and returns a signed URL.
func (m *GCSArtifactMirror) Mirror(ctx context.Context, req *MirrorRequest) (*MirrorResult, error) {
	obj := m.client.Bucket(m.bucket).Object(req.ArtifactPath)
	w := obj.NewWriter(ctx)
	w.ContentType = req.ContentType

	if _, err := io.Copy(w, req.Content); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("storage: mirror write failed for %q: %w", req.ArtifactPath, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("storage: mirror close failed for %q: %w", req.ArtifactPath, err)
	}

	expiresAt := time.Now().Add(signedURLTTL)
	signedURL, err := m.client.Bucket(m.bucket).SignedURL(req.ArtifactPath, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to sign URL for %q: %w", req.ArtifactPath, err)
	}

	return &MirrorResult{
		ArtifactPath: req.ArtifactPath,
		SignedURL:    signedURL,
		ExpiresAt:    expiresAt,
	}, nil
}
