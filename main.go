// ./main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/sitevoice/cmd"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// main is the entry point for the SiteVoice CLI application.
func main() {
	// Interrupts end the session the same way a spoken goodbye does.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil && !errors.Is(err, context.Canceled) {
		stop()
		os.Exit(1)
	}
}
