package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/patchstage/internal/cli"
)

// main walks staged patches one at a time and applies only confirmed ones.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.RunReview(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
