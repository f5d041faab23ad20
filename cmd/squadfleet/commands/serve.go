package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imamik/squadfleet/cmd/squadfleet/handlers"
)

// Serve returns the command that runs the HTTP API.
func Serve() *cobra.Command {
	opts := handlers.ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deployment API over HTTP",
		Long: `Serve deploy, change-number and upgrade over HTTP.

Metrics are exposed at /metrics. The server shuts down gracefully on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			opts.ConfigPath = configPath
			return handlers.Serve(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from config)")

	return cmd
}
