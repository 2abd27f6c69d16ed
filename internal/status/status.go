// Package status reports coarse progress of long running operations and lets
// the caller request an early stop.
package status

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrCancelled is returned when a Logger asked the operation to stop.
var ErrCancelled = errors.New("operation cancelled")

//go:generate moq -out logger_mock.go . Logger

// Logger receives progress of open, save and merge operations.
// Returning false from SetProgress, SetText or ContinueWork asks the
// operation to stop at the next safe point.
type Logger interface {
	StartLogging(operation string)
	SetProgress(percent uint32) bool
	SetText(text string) bool
	ContinueWork() bool
	EndLogging()
}

// Nop accepts every report and never stops.
type Nop struct{}

func (Nop) StartLogging(string)     {}
func (Nop) SetProgress(uint32) bool { return true }
func (Nop) SetText(string) bool     { return true }
func (Nop) ContinueWork() bool      { return true }
func (Nop) EndLogging()             {}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}

// SlogLogger writes progress to a slog logger at debug level.
type SlogLogger struct {
	log       *slog.Logger
	operation string
	mu        sync.Mutex
	stopped   bool
}

// NewSlogLogger creates a Logger backed by log.
func NewSlogLogger(log *slog.Logger) *SlogLogger {
	return &SlogLogger{log: log}
}

// StartLogging remembers the operation name.
func (s *SlogLogger) StartLogging(operation string) {
	s.mu.Lock()
	s.operation = operation
	s.stopped = false
	s.mu.Unlock()
	s.log.Debug("operation started", "operation", operation)
}

func (s *SlogLogger) SetProgress(percent uint32) bool {
	s.log.Debug("operation progress", "operation", s.op(), "percent", percent)
	return s.ContinueWork()
}

func (s *SlogLogger) SetText(text string) bool {
	s.log.Debug("operation status", "operation", s.op(), "text", text)
	return s.ContinueWork()
}

// Stop makes every subsequent call report false.
func (s *SlogLogger) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *SlogLogger) ContinueWork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

func (s *SlogLogger) EndLogging() {
	s.log.Debug("operation finished", "operation", s.op())
}

func (s *SlogLogger) op() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operation
}
