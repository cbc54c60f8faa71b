package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alkime/practice/internal/config"
)

// Level picks the log level for cfg.
func Level(cfg *config.Config) slog.Level {
	logLevel := slog.LevelInfo
	if cfg.Env == config.EnvDevelopment {
		logLevel = slog.LevelDebug
	}
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	return logLevel
}

// SetupLogger configures structured JSON logging on stdout.
func SetupLogger(cfg *config.Config) *slog.Logger {
	return setup(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{ //nolint:exhaustruct // defaults
		Level: Level(cfg),
	}))
}

// SetupCLI configures human readable logging on w.
func SetupCLI(cfg *config.Config, w io.Writer) *slog.Logger {
	return setup(slog.NewTextHandler(w, &slog.HandlerOptions{ //nolint:exhaustruct // defaults
		Level: Level(cfg),
	}))
}

// SetupFile sends logs to a file so they stay off a full-screen UI. The
// returned closer closes the file.
func SetupFile(cfg *config.Config, path string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path from config
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return SetupCLI(cfg, f), f, nil
}

func setup(handler slog.Handler) *slog.Logger {
	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}
