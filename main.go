// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/cartpilot/cmd"
)

// main is the entry point for the cartpilot CLI.
func main() {
	// The workflow runs against a live browser; an interrupt should tear the
	// session down instead of orphaning the process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
