// Package local implements storage.ByteStore on the local file system.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iudanet/keepvault/internal/storage"
)

// Store maps logical paths to files below an optional base directory.
type Store struct {
	base string
}

// New creates a store. An empty base uses paths as given.
func New(base string) *Store {
	return &Store{base: base}
}

func (s *Store) resolve(path string) string {
	if s.base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.base, path)
}

// OpenRead implements storage.ByteStore.
func (s *Store) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// OpenWrite implements storage.ByteStore.
func (s *Store) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	full := s.resolve(path)
	if dir := filepath.Dir(full); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &syncedFile{f: f}, nil
}

// Exists implements storage.ByteStore.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(s.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// Delete implements storage.ByteStore.
func (s *Store) Delete(ctx context.Context, path string) (bool, error) {
	err := os.Remove(s.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to delete %s: %w", path, err)
}

// Rename implements storage.ByteStore.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	if err := os.Rename(s.resolve(from), s.resolve(to)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrFileNotFound, from)
		}
		return fmt.Errorf("failed to rename %s: %w", from, err)
	}
	return nil
}

// syncedFile fsyncs on Close.
type syncedFile struct {
	f *os.File
}

func (s *syncedFile) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

func (s *syncedFile) Close() error {
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("failed to sync %s: %w", s.f.Name(), err)
	}
	return s.f.Close()
}
