// Package storage holds the blob store backing uploaded learning
// video files. Metadata lives in Postgres; this package only deals in
// raw file bytes addressed by key.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no file exists under the given key.
var ErrNotFound = errors.New("storage: file not found")

// FileStore stores uploaded files. Keys are opaque relative paths
// chosen by the caller (e.g. "videos/<uuid>.mp4").
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) (url string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
