package kdbx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/storage"
)

const (
	lockHeader      = "KeePass Lock File"
	lockSuffix      = ".lock"
	lockIDSize      = 8
	releaseAttempts = 5
	releaseDelay    = 20 * time.Millisecond
)

// LockInfo describes the owner of a lock file.
type LockInfo struct {
	Time    time.Time
	ID      string
	User    string
	Machine string
	Domain  string
}

func (i LockInfo) String() string {
	owner := i.User
	if i.Domain != "" {
		owner = i.Domain + `\` + owner
	}
	if i.Machine != "" {
		owner += "@" + i.Machine
	}
	return fmt.Sprintf("%s (%s)", owner, i.Time.Format(time.RFC3339))
}

// LockPath returns the lock file path of a database.
func LockPath(path string) string {
	return path + lockSuffix
}

// Lock is an acquired advisory lock.
type Lock struct {
	store storage.ByteStore
	path  string
	Info  LockInfo
}

// ReadLock returns the owner of the lock on path. A missing or unparseable
// lock file yields nil.
func ReadLock(ctx context.Context, store storage.ByteStore, path string) (*LockInfo, error) {
	r, err := store.OpenRead(ctx, LockPath(path))
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}
	return parseLock(data), nil
}

func parseLock(data []byte) *LockInfo {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if len(lines) < 6 || lines[0] != lockHeader || lines[1] == "" {
		return nil
	}
	at, err := time.Parse(time.RFC3339, lines[2])
	if err != nil {
		return nil
	}
	return &LockInfo{
		ID:      lines[1],
		Time:    at.UTC(),
		User:    lines[3],
		Machine: lines[4],
		Domain:  lines[5],
	}
}

// AcquireLock creates the lock file of path. A valid foreign lock yields a
// *LockHeldError.
func AcquireLock(ctx context.Context, store storage.ByteStore, path string) (*Lock, error) {
	owner, err := ReadLock(ctx, store, path)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		return nil, &LockHeldError{Owner: *owner}
	}

	id, err := crypto.RandomBytes(lockIDSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock id: %w", err)
	}
	info := currentOwner()
	info.ID = hex.EncodeToString(id)

	w, err := store.OpenWrite(ctx, LockPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	content := strings.Join([]string{
		lockHeader,
		info.ID,
		info.Time.Format(time.RFC3339),
		info.User,
		info.Machine,
		info.Domain,
	}, "\n") + "\n"
	if _, err := io.WriteString(w, content); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	return &Lock{store: store, path: path, Info: info}, nil
}

// Release deletes the lock file, retrying a few times on failure.
func (l *Lock) Release(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < releaseAttempts; attempt++ {
		if _, err = l.store.Delete(ctx, LockPath(l.path)); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(releaseDelay):
		}
	}
	return fmt.Errorf("failed to delete lock file: %w", err)
}

func currentOwner() LockInfo {
	info := LockInfo{Time: time.Now().UTC().Truncate(time.Second)}
	if u, err := user.Current(); err == nil {
		info.User = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		info.Machine = host
	}
	info.Domain = os.Getenv("USERDOMAIN")
	return info
}
