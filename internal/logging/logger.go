// Package logging attaches a zerolog logger to the run's context.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wizzomafizzo/git-bump/internal/storage"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 30
)

// Config defines the configuration for logger creation
type Config struct {
	Writer io.Writer
	Level  zerolog.Level
}

// New creates a new context with a logger attached.
// For production: provide fs and leave Writer nil for file logging.
// For tests: provide a custom Writer (like strings.Builder) for in-memory logging.
func New(ctx context.Context, fs afero.Fs, config Config) (context.Context, error) {
	var writer io.Writer

	if config.Writer != nil {
		writer = config.Writer
	} else {
		if fs == nil {
			return nil, errors.New("filesystem required when no writer provided")
		}

		storageManager := storage.New(fs)
		logFile, err := storageManager.GetLogPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get log path: %w", err)
		}

		writer = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
	}

	logger := zerolog.New(writer).With().
		Timestamp().
		Logger().
		Level(config.Level)

	return logger.WithContext(ctx), nil
}

// Get retrieves the logger from the provided context.
// Returns the logger associated with the context, or a disabled logger if none exists.
func Get(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
