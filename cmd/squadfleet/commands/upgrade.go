package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/squadfleet/cmd/squadfleet/handlers"
)

// Upgrade returns the command for upgrading the fleet to a template version.
//
// Optional flags:
//
//	--template: Template name (default from config)
//	--version: Archived version to upgrade to (default: current template)
//	--force: Re-deploy tenants already at the target version
//	--dry-run: Show the plan and migration impact without changes
//	--yes, -y: Skip the confirmation prompt
func Upgrade() *cobra.Command {
	opts := handlers.UpgradeOptions{}

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade all tenants to a template version",
		Long: `Upgrade every active tenant linked to a template to a target version.

The upgrade process:
1. Resolves the target template
2. Plans the fleet: tenants already at the target are skipped
3. Shows the plan and the migration impact
4. Re-deploys pending tenants in parallel; one failure does not stop the batch

Use --dry-run to see what would be upgraded without making changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = configPath
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Template, "template", "", "Template name (default from config)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "Archived template version to upgrade to")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Re-deploy tenants already at the target version")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be upgraded without executing")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	return cmd
}
