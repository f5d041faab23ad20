package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/template"
)

// DeployOptions contains options for the deploy command.
type DeployOptions struct {
	ConfigPath       string
	TenantID         string
	VoiceProvider    string
	VoiceID          string
	Template         string
	PreferredCountry string
	KnowledgeFiles   []string
	KnowledgeLabel   string
	JSON             bool
}

// Deploy provisions or updates the squad of one tenant.
func Deploy(ctx context.Context, opts DeployOptions) error {
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	req := deploy.Request{
		TenantID:         opts.TenantID,
		TemplateName:     opts.Template,
		PreferredCountry: opts.PreferredCountry,
	}
	if opts.VoiceID != "" {
		req.Voice = template.Voice{Provider: opts.VoiceProvider, VoiceID: opts.VoiceID}
	}
	if len(opts.KnowledgeFiles) > 0 {
		req.Knowledge = &deploy.Knowledge{FileIDs: opts.KnowledgeFiles, Label: opts.KnowledgeLabel}
	}

	res, err := app.Deployer.Deploy(ctx, req)
	if err != nil {
		return fmt.Errorf("deployment of %s failed: %w", opts.TenantID, err)
	}
	if opts.JSON {
		return printJSON(res)
	}
	fmt.Fprint(stdout, renderDeployResult(res))
	return nil
}
