package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a file does not exist in the caller's
// namespace.
var ErrNotFound = errors.New("file not found")

// FileStore defines per-user file operations across backends. A user's
// files live under a namespace keyed by the username; existence of an
// entry is the sole record of possession.
type FileStore interface {
	// EnsureNamespace prepares the user's namespace. Called at
	// registration; Save also calls it lazily.
	EnsureNamespace(ctx context.Context, username string) error
	// List returns the filenames in the user's namespace, empty when the
	// namespace is absent.
	List(ctx context.Context, username string) ([]string, error)
	// Save writes the file, overwriting any existing file of the same
	// sanitized name.
	Save(ctx context.Context, username, filename string, r io.Reader, size int64) error
	// Open returns a reader for the named file, ErrNotFound when absent.
	Open(ctx context.Context, username, filename string) (io.ReadCloser, error)
	// Remove deletes the named file, reporting whether it existed.
	Remove(ctx context.Context, username, filename string) (bool, error)
}
