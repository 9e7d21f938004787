package logger

import (
	"log/slog"
	"os"
)

// New returns a structured slog logger. Production emits JSON for log
// aggregation; every other environment gets the text handler for readable
// local output.
func New(environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if environment != "production" {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
