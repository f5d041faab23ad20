package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/squadfleet/internal/migration"
	"github.com/imamik/squadfleet/internal/template"
)

// TemplateShowOptions contains options for the template show command.
type TemplateShowOptions struct {
	ConfigPath string
	Name       string
	Version    string
	JSON       bool
}

// TemplateShow prints the resolved template, or an archived version.
func TemplateShow(ctx context.Context, opts TemplateShowOptions) error {
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	name := templateName(app, opts.Name)
	var (
		t      *template.Template
		source template.Source
	)
	if opts.Version != "" {
		t, err = app.Templates.Snapshot(ctx, name, opts.Version)
	} else {
		t, source, err = app.Templates.Resolve(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("failed to load template %s: %w", name, err)
	}

	if opts.JSON {
		return printJSON(t)
	}
	fmt.Fprint(stdout, renderTemplate(t, source))
	return nil
}

// TemplateDiffOptions contains options for the template diff command.
type TemplateDiffOptions struct {
	ConfigPath string
	Name       string
	From       string
	To         string
	JSON       bool
}

// TemplateDiff prints the migration impact between two template versions.
// An empty To compares against the currently resolved template.
func TemplateDiff(ctx context.Context, opts TemplateDiffOptions) error {
	if opts.From == "" {
		return errors.New("--from is required")
	}
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	name := templateName(app, opts.Name)
	from, err := app.Templates.Snapshot(ctx, name, opts.From)
	if err != nil {
		return fmt.Errorf("failed to load template %s@%s: %w", name, opts.From, err)
	}
	var to *template.Template
	if opts.To != "" {
		to, err = app.Templates.Snapshot(ctx, name, opts.To)
	} else {
		to, _, err = app.Templates.Resolve(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("failed to load target template %s: %w", name, err)
	}

	r := migration.Diff(from, to)
	if opts.JSON {
		return printJSON(r)
	}
	fmt.Fprint(stdout, renderMigration(r))
	return nil
}

// TemplateVersionsOptions contains options for the template versions command.
type TemplateVersionsOptions struct {
	ConfigPath string
	Name       string
}

// TemplateVersions lists the archived versions of a template.
func TemplateVersions(ctx context.Context, opts TemplateVersionsOptions) error {
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if app.Archive == nil {
		return errors.New("no template archive configured (set archive.bucket)")
	}
	name := templateName(app, opts.Name)
	versions, err := app.Archive.Versions(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to list versions of %s: %w", name, err)
	}
	if len(versions) == 0 {
		fmt.Fprintln(stdout, dimStyle.Render("no archived versions"))
		return nil
	}
	for _, v := range versions {
		fmt.Fprintln(stdout, v)
	}
	return nil
}

func templateName(app *App, name string) string {
	if name != "" {
		return name
	}
	return app.Config.Template.Name
}
