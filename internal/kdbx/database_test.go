package kdbx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/keepvault/internal/merge"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/storage"
	"github.com/iudanet/keepvault/internal/storage/local"
)

// saveNew binds a new database to path and writes it.
func saveNew(t *testing.T, store storage.ByteStore, path string, db *Database) {
	t.Helper()
	require.NoError(t, db.SaveAs(context.Background(), store, path, nil))
}

func TestOpenSave(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	db := sampleDatabase(t, "pw")
	db.Modified = true
	saveNew(t, store, "db.kdbx", db)
	assert.False(t, db.Modified)
	assert.Equal(t, "db.kdbx", db.Path())

	opened, err := Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{})
	require.NoError(t, err)
	assert.False(t, opened.Locked())
	assert.Equal(t, DefaultRootName, opened.Meta.DatabaseName)

	e := models.NewEntry()
	e.SetString(models.FieldTitle, "Added", false)
	opened.Root.AddEntry(e, true, true)
	require.NoError(t, opened.Save(ctx, nil))

	reopened, err := Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{})
	require.NoError(t, err)
	assert.NotNil(t, reopened.FindEntry(e.UUID))

	exists, err := store.Exists(ctx, "db.kdbx.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	saveNew(t, store, "db.kdbx", sampleDatabase(t, "pw"))

	_, err := Open(ctx, store, "missing.kdbx", passwordKey(t, "pw"), OpenOptions{})
	assert.ErrorIs(t, err, storage.ErrFileNotFound)

	_, err = Open(ctx, store, "db.kdbx", passwordKey(t, "other"), OpenOptions{UseLock: true})
	assert.ErrorIs(t, err, ErrWrongKey)

	// Неудачное открытие не оставляет блокировку
	exists, err := store.Exists(ctx, LockPath("db.kdbx"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen_Lock(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	saveNew(t, store, "db.kdbx", sampleDatabase(t, "pw"))

	first, err := Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{UseLock: true})
	require.NoError(t, err)
	assert.True(t, first.Locked())

	_, err = Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{UseLock: true})
	assert.ErrorIs(t, err, ErrLockHeld)

	// Без блокировки открыть можно
	_, err = Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{})
	require.NoError(t, err)

	require.NoError(t, first.Close(ctx))
	assert.False(t, first.Locked())
	require.NoError(t, first.Close(ctx))

	second, err := Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{UseLock: true})
	require.NoError(t, err)
	require.NoError(t, second.Close(ctx))
}

func TestSaveAs_MovesLock(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	saveNew(t, store, "a.kdbx", sampleDatabase(t, "pw"))

	db, err := Open(ctx, store, "a.kdbx", passwordKey(t, "pw"), OpenOptions{UseLock: true})
	require.NoError(t, err)
	require.NoError(t, db.SaveAs(ctx, store, "b.kdbx", nil))
	assert.Equal(t, "b.kdbx", db.Path())

	oldLock, err := ReadLock(ctx, store, "a.kdbx")
	require.NoError(t, err)
	assert.Nil(t, oldLock)
	newLock, err := ReadLock(ctx, store, "b.kdbx")
	require.NoError(t, err)
	assert.NotNil(t, newLock)

	require.NoError(t, db.Close(ctx))
}

func TestSave_ForeignLock(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	saveNew(t, store, "db.kdbx", sampleDatabase(t, "pw"))
	before := readAll(t, store, "db.kdbx")

	owner, err := Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{UseLock: true})
	require.NoError(t, err)

	reader, err := Open(ctx, store, "db.kdbx", passwordKey(t, "pw"), OpenOptions{})
	require.NoError(t, err)
	reader.Root.AddEntry(models.NewEntry(), true, false)

	err = reader.Save(ctx, nil)
	assert.ErrorIs(t, err, ErrLockHeld)
	var held *LockHeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, owner.lock.Info.ID, held.Owner.ID)
	assert.Equal(t, before, readAll(t, store, "db.kdbx"))

	// владелец блокировки сохраняет как обычно
	owner.Modified = true
	require.NoError(t, owner.Save(ctx, nil))

	// чужой lock-файл, подложенный после открытия
	require.NoError(t, owner.lock.Release(ctx))
	other, err := AcquireLock(ctx, store, "db.kdbx")
	require.NoError(t, err)
	assert.ErrorIs(t, owner.Save(ctx, nil), ErrLockHeld)

	require.NoError(t, other.Release(ctx))
	require.NoError(t, reader.Save(ctx, nil))
}

func TestSave_NoPath(t *testing.T) {
	db := sampleDatabase(t, "pw")
	assert.ErrorIs(t, db.Save(context.Background(), nil), ErrNoPath)
}

func TestSave_FailedCommitKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	disk := local.New(dir)
	saveNew(t, disk, "db.kdbx", sampleDatabase(t, "pw"))
	before := readAll(t, disk, "db.kdbx")

	db, err := Open(ctx, disk, "db.kdbx", passwordKey(t, "pw"), OpenOptions{})
	require.NoError(t, err)

	failing := &storage.ByteStoreMock{
		OpenReadFunc:  disk.OpenRead,
		OpenWriteFunc: disk.OpenWrite,
		DeleteFunc:    disk.Delete,
		RenameFunc: func(ctx context.Context, from, to string) error {
			return errors.New("disk full")
		},
	}
	db.store = failing
	db.Modified = true

	require.Error(t, db.Save(ctx, nil))
	assert.True(t, db.Modified)
	assert.Equal(t, before, readAll(t, disk, "db.kdbx"))

	exists, err := disk.Exists(ctx, "db.kdbx.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func readAll(t *testing.T, store storage.ByteStore, path string) []byte {
	t.Helper()
	r, err := store.OpenRead(context.Background(), path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func TestChangeKey(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	db := sampleDatabase(t, "old")
	saveNew(t, store, "db.kdbx", db)
	changed := db.Meta.MasterKeyChanged

	assert.ErrorIs(t, db.ChangeKey(nil), ErrNoKey)
	require.NoError(t, db.ChangeKey(passwordKey(t, "new")))
	assert.True(t, db.Modified)
	assert.False(t, db.Meta.MasterKeyChanged.Before(changed))
	require.NoError(t, db.Save(ctx, nil))

	_, err := Open(ctx, store, "db.kdbx", passwordKey(t, "old"), OpenOptions{})
	assert.ErrorIs(t, err, ErrWrongKey)
	_, err = Open(ctx, store, "db.kdbx", passwordKey(t, "new"), OpenOptions{})
	require.NoError(t, err)
}

func TestExportImport(t *testing.T) {
	db := sampleDatabase(t, "pw")

	var buf bytes.Buffer
	require.NoError(t, db.Export(&buf, nil))
	assert.Contains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), `ProtectInMemory="True"`)

	target := New(passwordKey(t, "other"))
	target.Root.UUID = db.Root.UUID
	res, err := target.Import(&buf, merge.Synchronize, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntriesAdded)
	assert.Equal(t, 1, res.GroupsAdded)

	e := target.FindEntry(db.Root.Entries()[0].UUID)
	require.NotNil(t, e)
	assert.Equal(t, "hunter2", e.Strings.Value(models.FieldPassword))
	assert.True(t, target.Modified)
}

func TestExport_Selected(t *testing.T) {
	db := sampleDatabase(t, "pw")
	vpn := db.Root.Groups()[0].Entries()[0]

	var buf bytes.Buffer
	require.NoError(t, db.Export(&buf, []*models.Entry{vpn}))
	assert.Contains(t, buf.String(), "VPN")
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "<Name>Work</Name>")

	// Исходная база не меняется
	assert.Same(t, db.Root.Groups()[0], vpn.Parent())
}

func TestImport_Malformed(t *testing.T) {
	db := sampleDatabase(t, "pw")
	_, err := db.Import(bytes.NewBufferString("<KeePassFile><Root>"), merge.Synchronize, nil)
	assert.ErrorIs(t, err, ErrCorruptFile)
}

func TestMergeIn_Facade(t *testing.T) {
	db := sampleDatabase(t, "pw")
	other := db.CloneDeep()
	e := models.NewEntry()
	e.SetString(models.FieldTitle, "Remote", false)
	other.Root.AddEntry(e, true, false)

	res, err := db.MergeIn(other, merge.Synchronize, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntriesAdded)
	assert.NotNil(t, db.FindEntry(e.UUID))

	_, err = db.MergeIn(nil, merge.Synchronize, nil)
	assert.ErrorIs(t, err, merge.ErrNilDatabase)
}
