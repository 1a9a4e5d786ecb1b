// Package main is the entry point for the mcp-local-repo-analyzer CLI.
//
// Without a subcommand it serves the analyzer as an MCP server over stdio,
// streamable HTTP or SSE. The inspect and report subcommands run the same
// analysis locally, and token manages the optional GitHub token used when
// fetching from private remotes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&rootOptions{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
