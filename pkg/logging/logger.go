// Package logging is the structured JSON logger shared by the server, the
// lambda and the terminal client.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const serviceName = "medipulse"

// Logger wraps slog.Logger so constructors can accept one concrete type.
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger writing to stdout at level.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Every record carries
// service=medipulse.
func NewWithWriter(level string, w io.Writer) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{Logger: slog.New(h).With("service", serviceName)}
}

func Default() *Logger {
	return New("info")
}

// Discard drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 4}))}
}

// With returns a child logger carrying args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
