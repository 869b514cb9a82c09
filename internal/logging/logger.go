// Package logging builds the process logger: JSON records to stdout and to a
// size-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rickgao/empire-bidder/internal/config"
)

// New creates a slog.Logger writing JSON to stdout and a rotating file.
// If the log directory cannot be created it falls back to stdout only.
func New(cfg config.LoggingConfig) *slog.Logger {
	return slog.New(slog.NewJSONHandler(newWriter(cfg), &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}))
}

func newWriter(cfg config.LoggingConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return os.Stdout
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	return io.MultiWriter(os.Stdout, fileLogger)
}

// ParseLevel maps a config level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
