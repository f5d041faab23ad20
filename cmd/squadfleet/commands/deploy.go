package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/squadfleet/cmd/squadfleet/handlers"
)

// Deploy returns the command for deploying one tenant.
//
// Deploy is idempotent: running it again for a deployed tenant updates the
// squad in place and keeps the phone number.
//
// Optional flags:
//
//	--voice-provider, --voice-id: Voice applied to every squad member
//	--template: Override the tenant's linked template
//	--country: Preferred country for a newly allocated number
//	--knowledge-file: Knowledge base file id (repeatable)
//	--knowledge-label: Label for the knowledge tool
func Deploy() *cobra.Command {
	opts := handlers.DeployOptions{}

	cmd := &cobra.Command{
		Use:   "deploy TENANT_ID",
		Short: "Provision or update a tenant's squad",
		Long: `Provision or update the phone-agent squad of a tenant.

The deployment:
1. Checks the tenant account and payment method
2. Allocates a phone number (existing, inventory or purchased)
3. Creates the shared tools and the squad from the linked template
4. Links the phone number to the squad and stores the deployment record

Re-running deploy for a deployed tenant updates the squad in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = configPath
			opts.TenantID = args[0]
			return handlers.Deploy(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.VoiceProvider, "voice-provider", "11labs", "Voice provider")
	cmd.Flags().StringVar(&opts.VoiceID, "voice-id", "", "Voice id; empty keeps the deployed voice")
	cmd.Flags().StringVar(&opts.Template, "template", "", "Template name overriding the tenant's linked template")
	cmd.Flags().StringVar(&opts.PreferredCountry, "country", "", "Preferred country for a new number (ISO code)")
	cmd.Flags().StringSliceVar(&opts.KnowledgeFiles, "knowledge-file", nil, "Knowledge base file id (repeatable)")
	cmd.Flags().StringVar(&opts.KnowledgeLabel, "knowledge-label", "", "Label for the knowledge tool")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the result as JSON")

	return cmd
}

// ChangeNumber returns the command for moving a tenant to a new number.
func ChangeNumber() *cobra.Command {
	opts := handlers.ChangeNumberOptions{}

	cmd := &cobra.Command{
		Use:   "change-number TENANT_ID",
		Short: "Move a deployed tenant to a different phone number",
		Long: `Move a deployed tenant to a different phone number.

Each tenant has a limited number of changes. The current number is never
handed out again to the same tenant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = configPath
			opts.TenantID = args[0]
			return handlers.ChangeNumber(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the result as JSON")

	return cmd
}
