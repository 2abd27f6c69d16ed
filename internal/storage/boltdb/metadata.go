package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/keepvault/internal/storage"
)

const (
	keyLastSyncPrefix = "last_sync:"
)

// SaveLastSync saves the time of the last successful sync of a database
func (s *Storage) SaveLastSync(ctx context.Context, path string, at time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем время в bytes
		timestampBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(timestampBytes, uint64(at.Unix()))

		if err := bucket.Put([]byte(keyLastSyncPrefix+path), timestampBytes); err != nil {
			return fmt.Errorf("failed to save last sync timestamp: %w", err)
		}

		return nil
	})
}

// GetLastSync retrieves the time of the last successful sync
// Returns zero time if no sync has been performed yet
func (s *Storage) GetLastSync(ctx context.Context, path string) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var at time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		timestampBytes := bucket.Get([]byte(keyLastSyncPrefix + path))
		if timestampBytes == nil {
			// Первая синхронизация
			return nil
		}

		at = time.Unix(int64(binary.BigEndian.Uint64(timestampBytes)), 0).UTC()
		return nil
	})

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}

	return at, nil
}
