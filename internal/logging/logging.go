// Package logging builds the process logger and a few shorthands the
// console and the backend link share.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewStructuredLogger writes JSON when format is "json", text otherwise.
func NewStructuredLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// LogError records err under the "error" key. A nil logger is a no-op.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	if err != nil {
		attrs = append([]slog.Attr{slog.String("error", err.Error())}, attrs...)
	}
	logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// LogOperation marks a completed step of the fence or map lifecycle.
func LogOperation(logger *slog.Logger, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

// SafeClose closes c, logging rather than returning a failure. what names
// the resource in the log line.
func SafeClose(c io.Closer, logger *slog.Logger, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "close "+what, err)
	}
}
