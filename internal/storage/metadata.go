package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSync saves the time of the last successful synchronization of a database
	SaveLastSync(ctx context.Context, path string, at time.Time) error

	// GetLastSync retrieves the time of the last successful synchronization
	// Returns zero time if no sync has been performed yet
	GetLastSync(ctx context.Context, path string) (time.Time, error)
}
