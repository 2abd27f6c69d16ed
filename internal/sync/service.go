// Package sync keeps two copies of a database in step: the remote copy is
// merged into the local one and the result is written to both.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/merge"
	"github.com/iudanet/keepvault/internal/status"
	"github.com/iudanet/keepvault/internal/storage"
)

//go:generate moq -out service_mock.go . Service

// Service определяет интерфейс для sync.Service
type Service interface {
	// Sync сливает удаленную копию в локальную и сохраняет результат в обе
	Sync(ctx context.Context, localPath, remotePath string, key *keys.CompositeKey) (*SyncResult, error)

	// LastSync возвращает время последней успешной синхронизации
	LastSync(ctx context.Context, localPath string) (time.Time, error)
}

// service synchronizes a local database with a remote copy
type service struct {
	localStore      storage.ByteStore
	remoteStore     storage.ByteStore
	metadataStorage storage.MetadataStorage
	status          status.Logger
	logger          *slog.Logger
}

// NewService creates a new sync service
func NewService(localStore, remoteStore storage.ByteStore, metadataStorage storage.MetadataStorage, st status.Logger, logger *slog.Logger) Service {
	return &service{
		localStore:      localStore,
		remoteStore:     remoteStore,
		metadataStorage: metadataStorage,
		status:          status.OrNop(st),
		logger:          logger,
	}
}

// SyncResult contains sync operation results
type SyncResult struct {
	Added        int  // группы и записи, пришедшие из удаленной копии
	Updated      int  // локальные объекты, замененные более новой версией
	Deleted      int  // объекты, удаленные по tombstone
	Relocated    int  // объекты, перенесенные в другую группу
	Reordered    int  // списки соседей с новым порядком
	HistoryItems int  // версии истории, добавленные из удаленной копии
	Uploaded     bool // удаленной копии не было, она создана из локальной
}

// Sync performs a full synchronization
// 1. Opens the local database under its lock
// 2. Merges the remote copy in Synchronize mode
// 3. Writes the result to both locations
func (s *service) Sync(ctx context.Context, localPath, remotePath string, key *keys.CompositeKey) (*SyncResult, error) {
	s.logger.Info("Starting synchronization", "local", localPath, "remote", remotePath)

	local, err := kdbx.Open(ctx, s.localStore, localPath, key, kdbx.OpenOptions{
		UseLock: true,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	defer func() {
		if err := local.Close(ctx); err != nil {
			s.logger.Warn("Failed to release lock", "path", localPath, "error", err)
		}
	}()

	result := &SyncResult{}

	remote, err := kdbx.Open(ctx, s.remoteStore, remotePath, key, kdbx.OpenOptions{Logger: s.logger})
	switch {
	case errors.Is(err, storage.ErrFileNotFound):
		// Удаленной копии еще нет - выгружаем локальную
		s.logger.Info("Remote database not found, uploading", "remote", remotePath)
		result.Uploaded = true
	case err != nil:
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	default:
		res, err := local.MergeIn(remote.Database, merge.Synchronize, s.status)
		if err != nil {
			return nil, err
		}
		result.Added = res.GroupsAdded + res.EntriesAdded
		result.Updated = res.GroupsUpdated + res.EntriesUpdated
		result.Deleted = res.Deleted
		result.Relocated = res.Relocated
		result.Reordered = res.Reordered
		result.HistoryItems = res.HistoryAdded

		if res.Changed() {
			if err := local.Save(ctx, s.status); err != nil {
				return nil, fmt.Errorf("failed to save local database: %w", err)
			}
		}
	}

	if err := s.upload(ctx, local, remotePath); err != nil {
		return nil, err
	}

	s.logger.Info("Synchronization completed",
		"added", result.Added,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"relocated", result.Relocated,
		"uploaded", result.Uploaded)

	// Сохраняем время синхронизации
	if err := s.metadataStorage.SaveLastSync(ctx, localPath, time.Now().UTC()); err != nil {
		s.logger.Warn("Failed to save last sync time", "error", err)
		// Не прерываем синхронизацию из-за ошибки сохранения времени
	}

	return result, nil
}

// upload writes the merged database to the remote location atomically.
func (s *service) upload(ctx context.Context, db *kdbx.Database, remotePath string) error {
	tx, err := storage.BeginTransaction(ctx, s.remoteStore, remotePath)
	if err != nil {
		return fmt.Errorf("failed to write remote database: %w", err)
	}
	if err := kdbx.Encode(tx.Writer(), db.Database, s.status); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			s.logger.Warn("Failed to roll back remote write", "error", rerr)
		}
		return fmt.Errorf("failed to write remote database: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to write remote database: %w", err)
	}
	return nil
}

// LastSync возвращает время последней синхронизации, нулевое если ее не было
func (s *service) LastSync(ctx context.Context, localPath string) (time.Time, error) {
	at, err := s.metadataStorage.GetLastSync(ctx, localPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}
	return at, nil
}
