// framedx is the command-line front end to the diagnosis engine: validate a
// frame file, list symptoms, rank a differential, or serve MCP over stdio.
//
// Usage:
//
//	framedx validate <file>
//	framedx symptoms [--frames=<file>]
//	framedx diagnose [--limit=N] [--exclude-zero] [--json] <symptom>...
//	framedx mcp [--no-feedback]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
