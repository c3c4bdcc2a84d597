package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(&filteringHandler{underlying: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func TestSectionFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf)

	logger.With("section", "not-a-section").Info("hidden")
	assert.Empty(t, buf.String())

	logger.With("section", "solve").Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWarningsAlwaysPass(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf)

	logger.With("section", "not-a-section").Warn("careful")
	assert.Contains(t, buf.String(), "careful")
}

func TestEnableSectionsAfterDerivingLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf).With("section", "explain-late")

	logger.Debug("before")
	assert.Empty(t, buf.String())

	EnableSections("explain-late")
	logger.Debug("after")
	assert.Contains(t, buf.String(), "after")
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(slog.LevelInfo)
	SetLevel(slog.LevelError)
	assert.False(t, DefaultLogger.Enabled(context.Background(), slog.LevelWarn))
	SetLevel(slog.LevelDebug)
	assert.True(t, DefaultLogger.Enabled(context.Background(), slog.LevelDebug))
}
