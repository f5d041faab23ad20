// Package main is the entry point for the squadfleet CLI.
//
// squadfleet provisions AI phone-agent squads for clinic tenants and rolls
// template upgrades out across the fleet. It runs one-off operations from the
// command line and serves the same operations over HTTP.
//
// Commands: deploy, change-number, upgrade, template, serve.
//
// For detailed usage information, run:
//
//	squadfleet --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/squadfleet/cmd/squadfleet/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
