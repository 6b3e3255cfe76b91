package config

import (
	"io"
	"log/slog"
	"os"
)

func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(os.Stdout, env)
}

// NewLoggerTo builds the logger on an explicit writer. The CLI logs to
// stderr so stdout stays clean for command output.
func NewLoggerTo(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
