package storage

import (
	"context"
	"fmt"
	"io"
)

const tempSuffix = ".tmp"

// Transaction writes a file atomically: data goes to a temporary sibling
// which replaces the target on Commit.
type Transaction struct {
	store ByteStore
	w     io.WriteCloser
	path  string
	temp  string
	done  bool
}

// BeginTransaction opens the temporary file for writing.
func BeginTransaction(ctx context.Context, store ByteStore, path string) (*Transaction, error) {
	temp := path + tempSuffix
	w, err := store.OpenWrite(ctx, temp)
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary file: %w", err)
	}
	return &Transaction{store: store, w: w, path: path, temp: temp}, nil
}

// Writer returns the stream to write the new content to.
func (t *Transaction) Writer() io.Writer {
	return t.w
}

// Commit closes the temporary file and moves it over the target.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.done {
		return ErrTransactionDone
	}
	t.done = true

	if err := t.w.Close(); err != nil {
		_, _ = t.store.Delete(ctx, t.temp)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := t.store.Rename(ctx, t.temp, t.path); err != nil {
		_, _ = t.store.Delete(ctx, t.temp)
		return fmt.Errorf("failed to replace %s: %w", t.path, err)
	}
	return nil
}

// Rollback discards the temporary file. Safe to call after Commit.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.w.Close()
	if _, err := t.store.Delete(ctx, t.temp); err != nil {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return nil
}
