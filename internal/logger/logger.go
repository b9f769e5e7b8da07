// Package logger wraps zerolog.Logger for seedlock.
//
// CLI output goes to stderr through a console writer so it never mixes with
// secrets printed on stdout. Passwords, device ids, seeds and envelopes must
// never be passed to a logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New builds a human-readable logger writing to w at the given level.
// An unknown level falls back to warn.
func New(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &Logger{l}
}

// NewCLI returns the default stderr logger
func NewCLI(level string) *Logger {
	return New(os.Stderr, level)
}

// Nop returns a *Logger that discards all log output
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Component returns a child logger tagged with the component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}
