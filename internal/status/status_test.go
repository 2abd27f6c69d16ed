package status

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))

	mock := &LoggerMock{}
	assert.Same(t, mock, OrNop(mock))
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.StartLogging("save")
	assert.True(t, l.SetProgress(50))
	assert.True(t, l.SetText("writing"))

	l.Stop()
	assert.False(t, l.ContinueWork())
	assert.False(t, l.SetProgress(60))
	l.EndLogging()

	out := buf.String()
	assert.Contains(t, out, "operation=save")
	assert.Contains(t, out, "percent=50")
	assert.Contains(t, out, "operation finished")

	// Новая операция сбрасывает остановку
	l.StartLogging("open")
	assert.True(t, l.ContinueWork())
}
