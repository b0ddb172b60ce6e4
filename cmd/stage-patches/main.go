package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/patchstage/internal/cli"
)

// main applies every staged patch onto a fresh review branch. It never
// pushes; the publish commands are printed for the operator.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.RunBatch(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
