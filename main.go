// File: main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlaterman/clickpilot/cmd"
	"github.com/mlaterman/clickpilot/internal/observability"
)

// main is the entry point of the application.
func main() {
	// Listen for interrupt signals (SIGINT, SIGTERM) for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		var exitErr *cmd.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		if errors.Is(err, context.Canceled) {
			// Graceful shutdown via Ctrl+C outside a session.
			os.Exit(0)
		}
		os.Exit(1)
	}
}
