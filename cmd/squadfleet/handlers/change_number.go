package handlers

import (
	"context"
	"fmt"
)

// ChangeNumberOptions contains options for the change-number command.
type ChangeNumberOptions struct {
	ConfigPath string
	TenantID   string
	JSON       bool
}

// ChangeNumber moves a deployed tenant to a different phone number.
func ChangeNumber(ctx context.Context, opts ChangeNumberOptions) error {
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	res, err := app.Deployer.ChangeNumber(ctx, opts.TenantID)
	if err != nil {
		return fmt.Errorf("number change for %s failed: %w", opts.TenantID, err)
	}
	if opts.JSON {
		return printJSON(res)
	}
	fmt.Fprintf(stdout, "%s: %s -> %s (%d changes remaining)\n",
		opts.TenantID, res.OldNumber, greenStyle.Render(res.NewNumber), res.ChangesRemaining)
	for _, f := range res.AdvisoryFailures {
		fmt.Fprintln(stdout, yellowStyle.Render(fmt.Sprintf("warning: %s: %s", f.Step, f.Error)))
	}
	return nil
}
