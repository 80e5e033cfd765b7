package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newLevelHandlers() (*MultiLevelHandler, *bytes.Buffer, *bytes.Buffer) {
	var stderrBuf, fileBuf bytes.Buffer
	stderrHandler := slog.NewTextHandler(&stderrBuf, &slog.HandlerOptions{Level: slog.LevelError})
	fileHandler := slog.NewTextHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewMultiLevelHandler(stderrHandler, fileHandler), &stderrBuf, &fileBuf
}

func TestMultiLevelHandlerDifferentLevels(t *testing.T) {
	handler, stderrBuf, fileBuf := newLevelHandlers()
	logger := slog.New(handler)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	assert.Contains(t, stderrBuf.String(), "error message")
	for _, quiet := range []string{"debug message", "info message", "warn message"} {
		assert.NotContains(t, stderrBuf.String(), quiet)
		assert.Contains(t, fileBuf.String(), quiet)
	}
	assert.Contains(t, fileBuf.String(), "error message")
}

func TestMultiLevelHandlerEnabled(t *testing.T) {
	handler, _, _ := newLevelHandlers()
	ctx := context.Background()

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		assert.True(t, handler.Enabled(ctx, level), level.String())
	}

	assert.False(t, NewMultiLevelHandler().Enabled(ctx, slog.LevelError))
	slog.New(NewMultiLevelHandler()).Error("no handlers") // must not panic
}

func TestMultiLevelHandlerWithAttrsAndGroup(t *testing.T) {
	handler, stderrBuf, fileBuf := newLevelHandlers()

	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("channel", "audiochan")}).WithGroup("source"))
	logger.Error("prepare failed", "id", 3)

	for _, buf := range []*bytes.Buffer{stderrBuf, fileBuf} {
		assert.Contains(t, buf.String(), "channel=audiochan")
		assert.Contains(t, buf.String(), "source.id=3")
	}
}

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func TestMultiLevelHandlerKeepsGoingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	handler := NewMultiLevelHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

	err := handler.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "still logged", 0))

	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, buf.String(), "still logged")
}
