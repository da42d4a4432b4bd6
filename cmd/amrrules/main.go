// Command amrrules interprets AMRFinderPlus genotypes against AMRrules.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amrrules-interpreter/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(version).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
