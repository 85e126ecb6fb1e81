package termdict

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with termdict-specific helpers.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithSegment adds a segment field to the logger.
func (l *Logger) WithSegment(name, id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", name, "segment_id", id),
	}
}

// WithField adds a dictionary field name to the logger.
func (l *Logger) WithField(field string) *Logger {
	return &Logger{
		Logger: l.Logger.With("field", field),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogBuild logs the construction of a segment's fields.
func (l *Logger) LogBuild(ctx context.Context, fields int, terms int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"fields", fields,
			"terms", terms,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"fields", fields,
			"terms", terms,
		)
	}
}

// LogFlush logs the upload of a finished segment.
func (l *Logger) LogFlush(ctx context.Context, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "segment flushed",
			"bytes", bytes,
		)
	}
}

// LogOpen logs opening a segment.
func (l *Logger) LogOpen(ctx context.Context, fields int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "segment opened",
			"fields", fields,
		)
	}
}

// LogSeek logs a term lookup. Successful lookups are logged at Debug.
func (l *Logger) LogSeek(ctx context.Context, field string, term []byte, found bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "seek failed",
			"field", field,
			"term", string(term),
			"error", err,
		)
		return
	}
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.DebugContext(ctx, "seek completed",
		"field", field,
		"term", string(term),
		"found", found,
	)
}
