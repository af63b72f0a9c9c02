// Package logger builds the application's slog loggers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Shivanand-hulikatti/activity-signup/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns the root logger. Release mode with a file path writes JSON
// to a rotating file; anything else writes text to stdout.
func New(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: cfg.Mode == config.ModeRelease,
		Level:     ParseLevel(cfg.Log.Level),
	}

	var handler slog.Handler
	if cfg.Mode == config.ModeRelease && cfg.Log.FilePath != "" {
		handler = slog.NewJSONHandler(rotatingFile(cfg.Log), opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"app_name", "activity-signup",
		"env", string(cfg.Mode),
	)
}

// Module derives a logger tagged with a module name.
func Module(base *slog.Logger, name string) *slog.Logger {
	return base.With("module", name)
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rotatingFile(c config.Log) io.Writer {
	return &lumberjack.Logger{
		Filename:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
