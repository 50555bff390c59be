// Package storage persists trained classifier artifacts.
//
// A [FileStore] abstracts the blob backend so the same artifact layout
// works on local disk and on S3-compatible object stores. On top of
// that, [ModelStore] manages versioned model documents with a pointer
// to the currently published version, so a model swap is a single
// pointer update and readers never observe a half-written artifact.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal blob interface.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use, and a written blob
// must only become visible to readers once its writer is closed.
type FileStore interface {
	// Read opens the named blob for reading. The caller must close the
	// returned ReadCloser. A missing blob yields an error wrapping
	// os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named blob for writing, replacing any previous
	// content. The caller must close the returned WriteCloser; the blob
	// is published on Close.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named blob. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, path string) (bool, error)
}
