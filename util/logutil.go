package util

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevel parses a LOG_LEVEL value: debug, info, warn or error. Anything else is info.
func LogLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// InitSlog installs a text handler on stderr. LOG_LEVEL, when set, overrides defaultLevel.
func InitSlog(defaultLevel slog.Level) {
	level := defaultLevel
	if name, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = LogLevel(name)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
