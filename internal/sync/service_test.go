package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/storage"
	"github.com/iudanet/keepvault/internal/storage/local"
)

type fixture struct {
	local    *local.Store
	remote   *local.Store
	metadata *storage.MetadataStorageMock
	synced   map[string]time.Time
	key      *keys.CompositeKey
	service  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pk, err := keys.NewPasswordKey("master")
	require.NoError(t, err)

	f := &fixture{
		local:  local.New(t.TempDir()),
		remote: local.New(t.TempDir()),
		synced: make(map[string]time.Time),
		key:    keys.NewCompositeKey(pk),
	}
	f.metadata = &storage.MetadataStorageMock{
		SaveLastSyncFunc: func(ctx context.Context, path string, at time.Time) error {
			f.synced[path] = at
			return nil
		},
		GetLastSyncFunc: func(ctx context.Context, path string) (time.Time, error) {
			return f.synced[path], nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewService(f.local, f.remote, f.metadata, nil, logger)
	return f
}

// seed writes the same database to both locations.
func (f *fixture) seed(t *testing.T) *kdbx.Database {
	t.Helper()
	ctx := context.Background()
	db := kdbx.New(f.key)
	db.KDF.Rounds = 100
	db.Root.AddEntry(newEntry("Shared"), true, false)
	require.NoError(t, db.SaveAs(ctx, f.local, "db.kdbx", nil))
	require.NoError(t, db.SaveAs(ctx, f.remote, "db.kdbx", nil))
	return db
}

// edit opens a copy, applies fn and saves it.
func (f *fixture) edit(t *testing.T, store storage.ByteStore, fn func(db *kdbx.Database)) {
	t.Helper()
	ctx := context.Background()
	db, err := kdbx.Open(ctx, store, "db.kdbx", f.key, kdbx.OpenOptions{})
	require.NoError(t, err)
	fn(db)
	require.NoError(t, db.Save(ctx, nil))
}

func (f *fixture) open(t *testing.T, store storage.ByteStore) *kdbx.Database {
	t.Helper()
	db, err := kdbx.Open(context.Background(), store, "db.kdbx", f.key, kdbx.OpenOptions{})
	require.NoError(t, err)
	return db
}

func newEntry(title string) *models.Entry {
	e := models.NewEntry()
	e.SetString(models.FieldTitle, title, false)
	return e
}

func TestSync_BothSidesChanged(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	localEntry := newEntry("Local only")
	remoteEntry := newEntry("Remote only")
	f.edit(t, f.local, func(db *kdbx.Database) { db.Root.AddEntry(localEntry, true, true) })
	f.edit(t, f.remote, func(db *kdbx.Database) { db.Root.AddEntry(remoteEntry, true, true) })

	res, err := f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.False(t, res.Uploaded)

	for _, store := range []storage.ByteStore{f.local, f.remote} {
		db := f.open(t, store)
		assert.NotNil(t, db.FindEntry(localEntry.UUID))
		assert.NotNil(t, db.FindEntry(remoteEntry.UUID))
	}

	assert.Len(t, f.metadata.SaveLastSyncCalls(), 1)
	last, err := f.service.LastSync(context.Background(), "db.kdbx")
	require.NoError(t, err)
	assert.False(t, last.IsZero())

	// Замок снят после синхронизации
	owner, err := kdbx.ReadLock(context.Background(), f.local, "db.kdbx")
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestSync_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.edit(t, f.remote, func(db *kdbx.Database) { db.Root.AddEntry(newEntry("Remote"), true, true) })

	_, err := f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
	require.NoError(t, err)

	res, err := f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, *res)
}

func TestSync_DeletionPropagates(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	shared := seeded.Root.Entries()[0].UUID

	f.edit(t, f.local, func(db *kdbx.Database) {
		e := db.FindEntry(shared)
		db.Meta.RecycleBinEnabled = false
		_, err := db.DeleteEntry(e, models.Now().Add(time.Second))
		require.NoError(t, err)
	})

	res, err := f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
	require.NoError(t, err)
	// Запись из удаленной копии сначала добавляется, затем удаляется по tombstone
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Deleted)

	remote := f.open(t, f.remote)
	assert.Nil(t, remote.FindEntry(shared))
	require.Len(t, remote.DeletedObjects, 1)
	assert.Equal(t, shared, remote.DeletedObjects[0].UUID)
}

func TestSync_UploadsWhenRemoteMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := kdbx.New(f.key)
	db.KDF.Rounds = 100
	require.NoError(t, db.SaveAs(ctx, f.local, "db.kdbx", nil))

	res, err := f.service.Sync(ctx, "db.kdbx", "db.kdbx", f.key)
	require.NoError(t, err)
	assert.True(t, res.Uploaded)

	exists, err := f.remote.Exists(ctx, "db.kdbx")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSync_Errors(t *testing.T) {
	t.Run("wrong key", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		pk, err := keys.NewPasswordKey("wrong")
		require.NoError(t, err)

		_, err = f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", keys.NewCompositeKey(pk))
		assert.ErrorIs(t, err, kdbx.ErrWrongKey)
		assert.Empty(t, f.metadata.SaveLastSyncCalls())
	})

	t.Run("local locked", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		lock, err := kdbx.AcquireLock(context.Background(), f.local, "db.kdbx")
		require.NoError(t, err)
		defer lock.Release(context.Background())

		_, err = f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
		assert.ErrorIs(t, err, kdbx.ErrLockHeld)
	})

	t.Run("remote write fails", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		remote := &storage.ByteStoreMock{
			OpenReadFunc: f.remote.OpenRead,
			OpenWriteFunc: func(ctx context.Context, path string) (io.WriteCloser, error) {
				return nil, errors.New("read-only share")
			},
		}
		svc := NewService(f.local, remote, f.metadata, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

		_, err := svc.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
		require.Error(t, err)
		assert.Empty(t, f.metadata.SaveLastSyncCalls())
	})
}

func TestSync_MetadataFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.metadata.SaveLastSyncFunc = func(ctx context.Context, path string, at time.Time) error {
		return errors.New("bucket missing")
	}

	_, err := f.service.Sync(context.Background(), "db.kdbx", "db.kdbx", f.key)
	require.NoError(t, err)
}
