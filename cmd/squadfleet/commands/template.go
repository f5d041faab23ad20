package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/squadfleet/cmd/squadfleet/handlers"
)

// Template returns the template command group.
func Template() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect squad templates",
	}

	cmd.AddCommand(templateShow())
	cmd.AddCommand(templateDiff())
	cmd.AddCommand(templateVersions())

	return cmd
}

func templateShow() *cobra.Command {
	opts := handlers.TemplateShowOptions{}

	cmd := &cobra.Command{
		Use:   "show [NAME]",
		Short: "Show the resolved template or an archived version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = configPath
			if len(args) == 1 {
				opts.Name = args[0]
			}
			return handlers.TemplateShow(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "Archived version to show")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the template as JSON")

	return cmd
}

func templateDiff() *cobra.Command {
	opts := handlers.TemplateDiffOptions{}

	cmd := &cobra.Command{
		Use:   "diff [NAME]",
		Short: "Show the migration impact between two template versions",
		Long: `Show the migration impact between two template versions.

Without --to the current template is the target.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = configPath
			if len(args) == 1 {
				opts.Name = args[0]
			}
			return handlers.TemplateDiff(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "Version to migrate from")
	cmd.Flags().StringVar(&opts.To, "to", "", "Version to migrate to (default: current)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	// MarkFlagRequired cannot fail for flags defined on the same command
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func templateVersions() *cobra.Command {
	opts := handlers.TemplateVersionsOptions{}

	return &cobra.Command{
		Use:   "versions [NAME]",
		Short: "List archived template versions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = configPath
			if len(args) == 1 {
				opts.Name = args[0]
			}
			return handlers.TemplateVersions(cmd.Context(), opts)
		},
	}
}
