package models

import (
	"fmt"
	"slices"
)

// Значения по умолчанию для ограничений истории
const (
	DefaultHistoryMaxItems = 10
	DefaultHistoryMaxSize  = 6 * 1024 * 1024
)

// HistoryLimits caps the history of every entry. A negative value disables
// the corresponding limit.
type HistoryLimits struct {
	MaxItems int32
	MaxSize  int64
}

// DefaultHistoryLimits returns the limits of a new database.
func DefaultHistoryLimits() HistoryLimits {
	return HistoryLimits{MaxItems: DefaultHistoryMaxItems, MaxSize: DefaultHistoryMaxSize}
}

// CreateBackup appends a snapshot of the current state to the history.
// When limits is non-nil the history is trimmed afterwards.
func (e *Entry) CreateBackup(limits *HistoryLimits) {
	snapshot := e.Clone(false)
	e.History = append(e.History, snapshot)

	if limits != nil {
		e.MaintainBackups(*limits)
	}
}

// RestoreFromBackup backs up the current state and then restores the
// history item at index i. The history itself is not overwritten.
func (e *Entry) RestoreFromBackup(i int, limits *HistoryLimits) error {
	if i < 0 || i >= len(e.History) {
		return fmt.Errorf("%w: %d", ErrHistoryIndex, i)
	}
	item := e.History[i]

	e.CreateBackup(limits)
	e.AssignProperties(item, false, false, false)
	return nil
}

// DeleteBackup removes the history item at index i.
func (e *Entry) DeleteBackup(i int) error {
	if i < 0 || i >= len(e.History) {
		return fmt.Errorf("%w: %d", ErrHistoryIndex, i)
	}
	e.History = slices.Delete(e.History, i, i+1)
	return nil
}

// HasBackupOfData reports whether some history item holds the same data as
// other. Parent, history and access times are never compared.
func (e *Entry) HasBackupOfData(other *Entry, ignoreLastMod, ignoreLastAccess bool) bool {
	if other == nil {
		return false
	}
	opts := CompareIgnoreParentGroup | CompareIgnoreHistory | CompareNullEmptyEquivStd
	if ignoreLastMod {
		opts |= CompareIgnoreLastMod
	}
	if ignoreLastAccess {
		opts |= CompareIgnoreLastAccess
	}
	for _, h := range e.History {
		if h.Equal(other, opts) {
			return true
		}
	}
	return false
}

// MaintainBackups trims the history to the limits, oldest items first.
// Returns true if anything was removed.
func (e *Entry) MaintainBackups(limits HistoryLimits) bool {
	deleted := false

	if limits.MaxItems >= 0 {
		for len(e.History) > int(limits.MaxItems) {
			e.removeOldestBackup()
			deleted = true
		}
	}

	if limits.MaxSize >= 0 {
		for len(e.History) > 0 {
			var total int64
			for _, h := range e.History {
				total += h.Size()
			}
			if total <= limits.MaxSize {
				break
			}
			e.removeOldestBackup()
			deleted = true
		}
	}

	return deleted
}

func (e *Entry) removeOldestBackup() {
	if len(e.History) == 0 {
		return
	}
	oldest := 0
	for i, h := range e.History {
		if CompareTimes(h.Times.LastModification, e.History[oldest].Times.LastModification) < 0 {
			oldest = i
		}
	}
	e.History = slices.Delete(e.History, oldest, oldest+1)
}
