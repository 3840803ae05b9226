package logging

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures the global slog logger with a text handler and a
// service attribute on every record. level is one of DEBUG, INFO, WARN,
// ERROR (case-insensitive, empty = INFO).
func SetupLogger(level, serviceName string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})

	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
