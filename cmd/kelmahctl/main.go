// Command kelmahctl drives a Kelmah API session from the terminal: log in,
// call endpoints with transparent token refresh, and run a local mock API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	apperrors "github.com/kelmah/sessionkit/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.Message(err))
		stop()
		os.Exit(1)
	}
}
