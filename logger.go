package dupehash

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with dupehash-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LogEncode logs a single fingerprint encode.
func (l *Logger) LogEncode(ctx context.Context, width, height int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "encode failed",
			"width", width,
			"height", height,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "encode completed",
			"width", width,
			"height", height,
		)
	}
}

// LogBatchEncode logs a batch encode. A batch with failed images is still a
// completed batch.
func (l *Logger) LogBatchEncode(ctx context.Context, count, failed int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "batch encode failed",
			"count", count,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "batch encode completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	default:
		l.InfoContext(ctx, "batch encode completed",
			"count", count,
		)
	}
}

// LogDistanceBatch logs a batch distance computation.
func (l *Logger) LogDistanceBatch(ctx context.Context, count, invalid int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "distance batch failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "distance batch completed",
			"count", count,
			"invalid", invalid,
		)
	}
}

// LogSearch logs a pair search.
func (l *Logger) LogSearch(ctx context.Context, mode SearchMode, n, threshold, pairs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "pair search failed",
			"mode", mode,
			"fingerprints", n,
			"threshold", threshold,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "pair search completed",
			"mode", mode,
			"fingerprints", n,
			"threshold", threshold,
			"pairs", pairs,
		)
	}
}
