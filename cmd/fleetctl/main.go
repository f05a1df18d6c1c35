// Package main is the entry point for the fleetctl CLI.
//
// fleetctl reconciles a fleet of cloud instances towards a declared state:
// a number of instances present, an exact count under a tag, or a set of
// instances running, stopped, restarted or absent.
//
// Commands: apply, terminate, start, stop, restart, version.
//
// For detailed usage information, run:
//
//	fleetctl --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/fleetctl/cmd/fleetctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
