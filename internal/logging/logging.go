// Package logging configures the process-wide slog handler.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// LevelTrace sits below debug. It is used for expected, high-volume drops
// such as webhook actions nobody subscribes to.
const LevelTrace = slog.LevelDebug - 4

// Setup installs a text handler writing to w as the default logger.
// verbose lowers the level to debug and adds source locations; trace lowers
// it further to LevelTrace.
func Setup(w io.Writer, verbose, trace bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if trace {
		level = LevelTrace
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose || trace,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(level)
}

// Trace logs at LevelTrace on the default logger.
func Trace(msg string, args ...any) {
	slog.Default().Log(context.Background(), LevelTrace, msg, args...)
}
