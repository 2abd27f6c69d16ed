package boltdb

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.etcd.io/bbolt"

	"github.com/iudanet/keepvault/internal/storage"
)

// OpenRead returns a reader over a copy of the stored bytes
func (s *Storage) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFiles)
		if bucket == nil {
			return fmt.Errorf("files bucket not found")
		}

		v := bucket.Get([]byte(path))
		if v == nil {
			return fmt.Errorf("%w: %s", storage.ErrFileNotFound, path)
		}

		// Значение валидно только внутри транзакции
		data = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenWrite buffers writes and stores them in one transaction on Close
func (s *Storage) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}
	return &fileWriter{s: s, path: path}, nil
}

// Exists checks whether a key is present in the files bucket
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFiles)
		if bucket == nil {
			return fmt.Errorf("files bucket not found")
		}
		found = bucket.Get([]byte(path)) != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Delete removes a stored file
func (s *Storage) Delete(ctx context.Context, path string) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFiles)
		if bucket == nil {
			return fmt.Errorf("files bucket not found")
		}

		key := []byte(path)
		if bucket.Get(key) == nil {
			return nil
		}
		existed = true

		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// Rename moves a value to a new key within one transaction
func (s *Storage) Rename(ctx context.Context, from, to string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFiles)
		if bucket == nil {
			return fmt.Errorf("files bucket not found")
		}

		v := bucket.Get([]byte(from))
		if v == nil {
			return fmt.Errorf("%w: %s", storage.ErrFileNotFound, from)
		}
		data := bytes.Clone(v)

		if err := bucket.Put([]byte(to), data); err != nil {
			return fmt.Errorf("failed to save file: %w", err)
		}
		if err := bucket.Delete([]byte(from)); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	})
}

// List returns all stored paths in key order
func (s *Storage) List(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var paths []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFiles)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return paths, nil
}

type fileWriter struct {
	s      *Storage
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, storage.ErrStorageClosed
	}
	return w.buf.Write(p)
}

func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.s.db == nil {
		return storage.ErrStorageClosed
	}

	err := w.s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFiles)
		if bucket == nil {
			return fmt.Errorf("files bucket not found")
		}
		if err := bucket.Put([]byte(w.path), w.buf.Bytes()); err != nil {
			return fmt.Errorf("failed to save file: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}
