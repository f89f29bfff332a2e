// Package util carries small process-wide helpers.
package util

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger at the given level, falling back to
// info when the level string is unrecognized.
func NewLogger(level string) zerolog.Logger {
	return loggerTo(os.Stdout, level, false)
}

// NewConsoleLogger is NewLogger with human-readable output for local runs.
func NewConsoleLogger(level string) zerolog.Logger {
	return loggerTo(os.Stdout, level, true)
}

func loggerTo(out io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}
