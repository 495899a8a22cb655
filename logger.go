package di

import "log/slog"

// Logger is the interface used to log what happens in a Forest:
// scopes being opened and closed, singletons being built,
// and errors that occurred while an object is closed.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogLogger is a Logger writing to a *slog.Logger.
type SlogLogger struct {
	slog *slog.Logger
}

// NewSlogLogger creates a SlogLogger.
// It uses slog.Default() if l is nil.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{slog: l.With("component", "di")}
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// MuteLogger is a Logger that doesn't log anything.
type MuteLogger struct{}

func (l MuteLogger) Debug(msg string, args ...any) {}

func (l MuteLogger) Error(msg string, args ...any) {}
