package testutil

import (
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
)

// NewLogger builds a human-readable slog logger for tests
func NewLogger() *slog.Logger {
	handler := console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(handler)
}
