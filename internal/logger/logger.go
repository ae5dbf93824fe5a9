package logger

import (
	"log/slog"
	"strings"

	"github.com/TuneSync/tune-sync-backend/config"
	"github.com/dusted-go/logging/prettylog"
)

var Log *slog.Logger

func level() slog.Level {
	switch strings.ToLower(config.Conf.LogLevel) {
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

func init() {
	Log = slog.New(prettylog.NewHandler(&slog.HandlerOptions{
		Level: level(),
	}))
}
