// Package logging builds the zerolog loggers used by the CLI and the VM.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/funvibe/lox/internal/utils"
)

// Field names shared by every log line.
const (
	SourceFieldName = "src"
	RunFieldName    = "run"
)

// New returns a logger writing to w at the given level. Terminals get the
// human-friendly console format; anything else gets JSON lines.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := w
	if utils.IsTerminal(w) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithSource returns a child logger tagged with the component that logs.
func WithSource(logger zerolog.Logger, source string) zerolog.Logger {
	return logger.With().Str(SourceFieldName, source).Logger()
}
