package storage

import (
	"context"
	"io"
)

//go:generate moq -out bytestore_mock.go . ByteStore

// ByteStore is the byte-stream I/O collaborator. The database engine never
// opens files itself, everything goes through a logical path on a ByteStore.
type ByteStore interface {
	// OpenRead opens an existing file for reading.
	// Returns ErrFileNotFound if the path doesn't exist
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite creates or truncates a file. Data is persisted on Close.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether a file exists at path
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file, returns false if it didn't exist
	Delete(ctx context.Context, path string) (bool, error)

	// Rename moves a file, replacing the destination if present
	Rename(ctx context.Context, from, to string) error
}
