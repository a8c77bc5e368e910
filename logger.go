package flowsig

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with flowsig-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithBase adds a base field to the logger.
func (l *Logger) WithBase(base float64) *Logger {
	return &Logger{
		Logger: l.Logger.With("base", base),
	}
}

// LogFit logs a training run.
func (l *Logger) LogFit(ctx context.Context, r *FitReport, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"error", err,
		)
		return
	}
	if len(r.DomainWarnings) > 0 {
		l.WarnContext(ctx, "fit encountered undefined feature values",
			"rows", len(r.DomainWarnings),
			"first_row", r.DomainWarnings[0],
		)
	}
	l.InfoContext(ctx, "fit completed",
		"rows", r.Rows,
		"features", r.Features,
		"signatures", r.Signatures,
		"duration", r.Duration,
	)
}

// LogPredict logs an inference run.
func (l *Logger) LogPredict(ctx context.Context, r *PredictReport, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"error", err,
		)
		return
	}
	if len(r.DomainWarnings) > 0 {
		l.WarnContext(ctx, "predict encountered undefined feature values",
			"rows", len(r.DomainWarnings),
			"first_row", r.DomainWarnings[0],
		)
	}
	l.DebugContext(ctx, "predict completed",
		"rows", r.Rows,
		"anomalies", r.Anomalies,
		"duration", r.Duration,
	)
}

// LogLoad logs loading a persisted signature set.
func (l *Logger) LogLoad(ctx context.Context, path string, signatures int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load signature set failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "signature set loaded",
			"path", path,
			"signatures", signatures,
		)
	}
}

// LogSave logs persisting a signature set.
func (l *Logger) LogSave(ctx context.Context, path string, signatures int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save signature set failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "signature set saved",
			"path", path,
			"signatures", signatures,
		)
	}
}
