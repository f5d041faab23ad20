package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/ui/tui"
)

// runUpgradeTUI shows live progress on a terminal. Replaced in tests.
var runUpgradeTUI = tui.RunUpgradeTUI

// ErrUpgradeCancelled is returned when the operator declines the upgrade.
var ErrUpgradeCancelled = errors.New("upgrade cancelled")

// UpgradeOptions contains options for the upgrade command.
type UpgradeOptions struct {
	ConfigPath string
	Template   string
	Version    string
	Force      bool
	DryRun     bool
	Yes        bool
	JSON       bool
}

// Upgrade handles the upgrade command.
//
// The fleet plan is always previewed first. A real run then asks for
// confirmation on an interactive terminal unless Yes is set, and re-deploys
// every pending tenant with the target template. Terminals get a live
// progress dashboard.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	name := opts.Template
	if name == "" {
		name = app.Config.Template.Name
	}
	target, err := app.Planner.Target(ctx, name, opts.Version)
	if err != nil {
		return err
	}
	plan, err := app.Planner.Plan(ctx, target, opts.Force)
	if err != nil {
		return err
	}

	preview, err := app.Planner.Execute(ctx, plan, true)
	if err != nil {
		return err
	}
	if opts.DryRun || len(plan.Pending()) == 0 {
		return report(preview, opts.JSON)
	}

	if !opts.JSON {
		fmt.Fprint(stdout, renderUpgradeReport(preview))
	}
	if !opts.Yes && isInteractive() {
		ok, err := confirm(ctx,
			fmt.Sprintf("Upgrade %d tenants to %s %s?", len(plan.Pending()), target.Name, target.Version),
			"Each tenant's squad is rebuilt from the new template.")
		if err != nil {
			return err
		}
		if !ok {
			return ErrUpgradeCancelled
		}
	}

	var result *fleet.Report
	if isInteractive() && !opts.JSON {
		result, err = runUpgradeTUI(ctx, app.Planner, plan)
	} else {
		result, err = app.Planner.Execute(ctx, plan, false)
	}
	if err != nil {
		return err
	}
	if err := report(result, opts.JSON); err != nil {
		return err
	}
	if result.Summary != nil && result.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d tenant upgrades failed", result.Summary.Failed, result.Summary.Total)
	}
	return nil
}

func report(r *fleet.Report, asJSON bool) error {
	if asJSON {
		return printJSON(r)
	}
	fmt.Fprint(stdout, renderUpgradeReport(r))
	return nil
}
