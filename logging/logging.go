// Package logging builds the zerolog logger used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLevel is used when Options.Level is empty.
const DefaultLevel = zerolog.WarnLevel

// Options configures [New].
type Options struct {
	// Level is a zerolog level name, e.g. "debug" or "warn".
	Level string
	// File, if set, sends log output to a size-rotated file instead of the
	// console.
	File string
	// Console is where console output goes. Defaults to standard error.
	Console io.Writer
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger. The returned closer must be closed when the logger is
// no longer needed; it's a no-op for console logging.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := DefaultLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	if opts.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    5,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		logger := zerolog.New(fileWriter).
			Level(level).
			With().
			Timestamp().
			Logger()
		return logger, fileWriter, nil
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: console, NoColor: opts.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, nopCloser{}, nil
}
