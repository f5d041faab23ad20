// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// configPath is bound to the persistent --config flag.
var configPath string

// Root returns the root command for the squadfleet CLI.
//
// Every subcommand reads the configuration file named by --config. Values in
// the file are overridden by SQUADFLEET_* environment variables.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "squadfleet",
		Short:         "Provision and upgrade AI phone-agent squads for clinics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	// Tenant operations
	cmd.AddCommand(Deploy())
	cmd.AddCommand(ChangeNumber())

	// Fleet operations
	cmd.AddCommand(Upgrade())
	cmd.AddCommand(Template())
	cmd.AddCommand(Serve())

	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
