package svmap

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with svmap-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithName adds a map name field to the logger, useful when a process
// holds several maps.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("map", name),
	}
}

// LogPublish logs a completed publish.
func (l *Logger) LogPublish(ctx context.Context, stats PublishStats, duration time.Duration) {
	if stats.Bootstrapped {
		l.DebugContext(ctx, "first publish completed",
			"waited_readers", stats.Waited,
			"wait", stats.WaitDuration,
			"duration", duration,
		)
		return
	}
	l.DebugContext(ctx, "publish completed",
		"replayed", stats.Replayed,
		"waited_readers", stats.Waited,
		"wait", stats.WaitDuration,
		"duration", duration,
	)
}

// LogCreate logs the construction of a map.
func (l *Logger) LogCreate(ctx context.Context, capacity int, rateLimited bool, maxPending int) {
	l.DebugContext(ctx, "map created",
		"capacity", capacity,
		"rate_limited", rateLimited,
		"max_pending", maxPending,
	)
}

// LogThrottled logs a publish refused by the rate limit. total counts every
// refusal so far, this one included.
func (l *Logger) LogThrottled(ctx context.Context, pending int, total int64) {
	l.DebugContext(ctx, "publish throttled",
		"pending", pending,
		"throttled_total", total,
	)
}

// LogAutoPublish logs a publish triggered by the pending threshold.
func (l *Logger) LogAutoPublish(ctx context.Context, pending, threshold int) {
	l.DebugContext(ctx, "pending threshold reached",
		"pending", pending,
		"threshold", threshold,
	)
}

// LogClose logs the teardown of a map.
func (l *Logger) LogClose(ctx context.Context, entries, readers int, err error) {
	if err != nil {
		l.WarnContext(ctx, "close failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "map closed",
			"entries", entries,
			"open_readers", readers,
		)
	}
}
