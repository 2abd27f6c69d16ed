package kdbx

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongKey indicates the composite key does not open the container.
	ErrWrongKey = errors.New("wrong composite key")

	// ErrCorruptFile indicates broken framing, block hashes or payload structure.
	ErrCorruptFile = errors.New("database file is corrupt")

	// ErrTamperedHeader indicates the header hash stored in the payload does
	// not match the header on disk.
	ErrTamperedHeader = errors.New("database header has been modified")

	// ErrUnsupportedVersion indicates a file format newer than this implementation.
	ErrUnsupportedVersion = errors.New("unsupported file version")

	// ErrLockHeld indicates another process holds the advisory lock.
	ErrLockHeld = errors.New("database is locked")

	// ErrNoKey indicates a save without a composite key.
	ErrNoKey = errors.New("composite key is not set")

	// ErrNoPath indicates a save of a database that was never opened or saved.
	ErrNoPath = errors.New("database has no path")
)

// LockHeldError carries the owner of a foreign lock file.
type LockHeldError struct {
	Owner LockInfo
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("database is locked by %s", e.Owner)
}

// Is makes errors.Is(err, ErrLockHeld) match.
func (e *LockHeldError) Is(target error) bool {
	return target == ErrLockHeld
}
