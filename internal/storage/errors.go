package storage

import "errors"

// Common storage errors
var (
	// ErrFileNotFound indicates that no file exists at the logical path
	ErrFileNotFound = errors.New("file not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrTransactionDone indicates a commit or rollback of a finished transaction
	ErrTransactionDone = errors.New("transaction already finished")
)
