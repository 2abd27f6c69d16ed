package kdbx

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/keepvault/internal/storage"
	"github.com/iudanet/keepvault/internal/storage/local"
)

func TestAcquireLock(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())

	lock, err := AcquireLock(ctx, store, "db.kdbx")
	require.NoError(t, err)
	assert.Len(t, lock.Info.ID, 2*lockIDSize)

	owner, err := ReadLock(ctx, store, "db.kdbx")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, lock.Info.ID, owner.ID)
	assert.True(t, lock.Info.Time.Equal(owner.Time))

	_, err = AcquireLock(ctx, store, "db.kdbx")
	require.ErrorIs(t, err, ErrLockHeld)
	var held *LockHeldError
	require.True(t, errors.As(err, &held))
	assert.Equal(t, lock.Info.ID, held.Owner.ID)

	require.NoError(t, lock.Release(ctx))
	exists, err := store.Exists(ctx, LockPath("db.kdbx"))
	require.NoError(t, err)
	assert.False(t, exists)

	again, err := AcquireLock(ctx, store, "db.kdbx")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestReadLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantID  string
	}{
		{
			name:    "valid",
			content: "KeePass Lock File\nabcdef0123456789\n2024-03-01T12:00:00Z\nalice\nhost\nCORP\n",
			wantID:  "abcdef0123456789",
		},
		{
			name:    "windows line endings",
			content: "KeePass Lock File\r\n0011223344556677\r\n2024-03-01T12:00:00Z\r\nalice\r\nhost\r\n\r\n",
			wantID:  "0011223344556677",
		},
		{name: "wrong header", content: "Some Lock\nid\n2024-03-01T12:00:00Z\na\nb\nc\n"},
		{name: "bad time", content: "KeePass Lock File\nid\nyesterday\na\nb\nc\n"},
		{name: "too short", content: "KeePass Lock File\nid\n"},
		{name: "empty", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := local.New(t.TempDir())
			w, err := store.OpenWrite(ctx, LockPath("db.kdbx"))
			require.NoError(t, err)
			_, err = io.WriteString(w, tt.content)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			owner, err := ReadLock(ctx, store, "db.kdbx")
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, owner)
				return
			}
			require.NotNil(t, owner)
			assert.Equal(t, tt.wantID, owner.ID)
			assert.Equal(t, "alice", owner.User)
		})
	}
}

func TestReadLock_Missing(t *testing.T) {
	owner, err := ReadLock(context.Background(), local.New(t.TempDir()), "db.kdbx")
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestLockInfo_String(t *testing.T) {
	info := parseLock([]byte("KeePass Lock File\nid\n2024-03-01T12:00:00Z\nalice\nhost\nCORP\n"))
	require.NotNil(t, info)
	assert.True(t, strings.HasPrefix(info.String(), `CORP\alice@host`))
}

func TestLock_ReleaseRetries(t *testing.T) {
	calls := 0
	store := &storage.ByteStoreMock{
		DeleteFunc: func(ctx context.Context, path string) (bool, error) {
			calls++
			if calls < 3 {
				return false, errors.New("sharing violation")
			}
			return true, nil
		},
	}
	lock := &Lock{store: store, path: "db.kdbx"}

	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestLock_ReleaseGivesUp(t *testing.T) {
	store := &storage.ByteStoreMock{
		DeleteFunc: func(ctx context.Context, path string) (bool, error) {
			return false, errors.New("sharing violation")
		},
	}
	lock := &Lock{store: store, path: "db.kdbx"}

	err := lock.Release(context.Background())
	require.Error(t, err)
	assert.Len(t, store.DeleteCalls(), releaseAttempts)
}
