// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging installs a TextHandler on w as the default logger. The
// level comes from SYNT_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and defaults to
// Info.
func ConfigureLogging(w io.Writer) {
	logLevel.Set(ParseLevel(os.Getenv("SYNT_LOG_LEVEL")))

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a level name to a slog level, falling back to Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLogLevel changes the level of the logger set up by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
