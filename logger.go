package hybridsearch

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with hybridsearch-specific context, providing
// structured logging with consistent field names across phases.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses a default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithQuery adds a canonicalized-query field to the logger.
func (l *Logger) WithQuery(canonQuery string) *Logger {
	return &Logger{Logger: l.Logger.With("query", canonQuery)}
}

// WithK adds a result-count field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k)}
}

// WithPhase adds a phase field to the logger.
func (l *Logger) WithPhase(phase Phase) *Logger {
	return &Logger{Logger: l.Logger.With("phase", phase.String())}
}

// LogSearch logs one phase emission of a search.
func (l *Logger) LogSearch(ctx context.Context, phase Phase, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search phase failed",
			"phase", phase.String(),
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search phase completed",
		"phase", phase.String(),
		"k", k,
		"results", resultsFound,
	)
}

// LogQualityDegraded logs a REFINED phase that was dropped, leaving the
// INITIAL result as the last one, because the quality embedder failed,
// no TextResolver was available, or the deadline expired.
func (l *Logger) LogQualityDegraded(ctx context.Context, reason string) {
	l.WarnContext(ctx, "refined phase degraded to fast ranking", "reason", reason)
}

// LogPersistence logs a save or load operation.
func (l *Logger) LogPersistence(ctx context.Context, op, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persistence operation failed",
			"op", op,
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "persistence operation completed",
		"op", op,
		"path", path,
	)
}
