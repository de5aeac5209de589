package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/smarthunt/realtime-service/config"
	"github.com/smarthunt/realtime-service/internal/auth"
	"github.com/smarthunt/realtime-service/internal/store"
)

// logLevel is shared between the initial logger construction and the
// config watcher so the level can be changed without restarting.
var logLevel = new(slog.LevelVar)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyLogLevel(s string) {
	logLevel.Set(parseLogLevel(s))
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	applyLogLevel(cfg.Log.Level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", ServiceName)
	slog.SetDefault(logger)

	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

func ProvideResolver(cfg *config.Config, s *store.Store) auth.Resolver {
	return auth.NewJWTResolver(cfg.Auth.JWTSecret, s)
}
