// Package logging configures the application-wide structured logger.
package logging

import (
	"log/slog"
	"os"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

// Init initializes the default slog logger with the specified level and
// format. level: "debug", "info", "warn", "error" (defaults to "info").
// format: "json" or "text" (defaults to "text").
func Init(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithCreator returns a logger carrying the composite creator key fields.
func WithCreator(key domain.CreatorKey) *slog.Logger {
	return slog.Default().With("guild_id", key.WorkspaceID, "creator_id", key.CreatorID)
}

// WithChannel returns a logger with a channel_id field.
func WithChannel(channelID string) *slog.Logger {
	return slog.Default().With("channel_id", channelID)
}
