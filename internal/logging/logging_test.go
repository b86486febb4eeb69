package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }

func TestStructuredLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, "json", slog.LevelInfo)

		logger.Info("test message", slog.String("component", "test"), slog.Int("count", 42))

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"test message"`)
		assert.Contains(t, output, `"component":"test"`)
		assert.Contains(t, output, `"count":42`)
	})

	t.Run("text format respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, "text", slog.LevelWarn)

		logger.Info("info message")
		logger.Warn("warning message")

		output := buf.String()
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "msg=\"warning message\"")
	})
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, "json", slog.LevelInfo)

	LogError(logger, "dial failed", assert.AnError, slog.String("url", "ws://backend:8765"))
	LogOperation(logger, "fence submitted", slog.Int("vertices", 5))
	SafeClose(failingCloser{}, logger, "backend connection")

	output := buf.String()
	assert.Contains(t, output, `"msg":"dial failed"`)
	assert.Contains(t, output, `"url":"ws://backend:8765"`)
	assert.Contains(t, output, `"msg":"fence submitted"`)
	assert.Contains(t, output, `"vertices":5`)
	assert.Contains(t, output, `"msg":"close backend connection"`)
	assert.Contains(t, output, `"error":"close failed"`)

	// nil loggers are tolerated
	LogError(nil, "ignored", assert.AnError)
	LogOperation(nil, "ignored")
	SafeClose(nil, logger, "nothing")
}
