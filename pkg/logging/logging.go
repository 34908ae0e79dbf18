// Package logging builds the process logger and error reporting.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File enables a rotating copy of the log next to stdout.
	File   string
	Output io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a JSON logger whose Warn and Error records are also reported
// to Sentry. The closer releases the rotating file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})

	return slog.New(NewSentryHandler(handler)), closer
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
