package gridcache

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with gridcache-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithKey adds a chunk key field to the logger.
func (l *Logger) WithKey(key ChunkKey) *Logger {
	return &Logger{
		Logger: l.Logger.With("key", key.String()),
	}
}

// WithOwner adds an owner field to the logger.
func (l *Logger) WithOwner(ownerID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("owner", ownerID),
	}
}

// LogLoad logs a completed (or failed) chunk load.
func (l *Logger) LogLoad(ctx context.Context, key ChunkKey, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk load failed",
			"key", key.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "chunk loaded",
			"key", key.String(),
		)
	}
}

// LogEvict logs an eviction, including whether a write-back was forced.
func (l *Logger) LogEvict(ctx context.Context, key ChunkKey, writeBack bool) {
	l.DebugContext(ctx, "chunk evicted",
		"key", key.String(),
		"write_back", writeBack,
	)
}

// LogSave logs a single-chunk save.
func (l *Logger) LogSave(ctx context.Context, key ChunkKey, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk save failed",
			"key", key.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "chunk saved",
			"key", key.String(),
		)
	}
}

// LogSaveAll logs a bulk write-back of dirty chunks.
func (l *Logger) LogSaveAll(ctx context.Context, total, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "dirty write-back completed with failures",
			"total", total,
			"failed", failed,
		)
	} else if total > 0 {
		l.InfoContext(ctx, "dirty write-back completed",
			"count", total,
		)
	}
}

// LogPrefetch logs a radius prefetch request.
func (l *Logger) LogPrefetch(ctx context.Context, ownerID string, radius, enqueued, dropped int) {
	l.DebugContext(ctx, "prefetch enqueued",
		"owner", ownerID,
		"radius", radius,
		"enqueued", enqueued,
		"dropped_pending", dropped,
	)
}

// LogClear logs a cache clear.
func (l *Logger) LogClear(ctx context.Context, count int, force bool) {
	l.InfoContext(ctx, "cache cleared",
		"count", count,
		"force", force,
	)
}
