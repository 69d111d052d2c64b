package app

import (
	"io"

	"github.com/rs/zerolog"
)

// levelSplitWriter sends warnings and errors to one writer and everything
// below to another, so warnings can be flushed even when info output is not
type levelSplitWriter struct {
	warn io.Writer
	info io.Writer
}

func (w levelSplitWriter) Write(p []byte) (int, error) {
	return w.info.Write(p)
}

func (w levelSplitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.WarnLevel {
		return w.warn.Write(p)
	}
	return w.info.Write(p)
}

// NewLogger builds the logger used across a run. Debug output is kept only
// when verbose is set.
func NewLogger(warn, info io.Writer, verbose bool) zerolog.Logger {
	if warn == nil {
		warn = io.Discard
	}
	if info == nil {
		info = io.Discard
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := levelSplitWriter{
		warn: zerolog.ConsoleWriter{Out: warn, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}},
		info: zerolog.ConsoleWriter{Out: info, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}},
	}
	return zerolog.New(out).Level(level)
}
