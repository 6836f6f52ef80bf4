package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// NewLogger builds the process logger: colored tint output in development,
// JSON everywhere else. It also becomes slog's default.
func NewLogger(level, environment string) *slog.Logger {
	log := slog.New(newHandler(os.Stderr, ParseLevel(level), environment))
	slog.SetDefault(log)
	return log
}

func newHandler(w io.Writer, level slog.Level, environment string) slog.Handler {
	if environment == "development" {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  level == slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
