package handlers

import (
	"context"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// isInteractive reports whether stdout is a terminal.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// confirm asks a yes/no question. Replaced in tests.
var confirm = func(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Upgrade").
				Negative("Cancel").
				Value(&ok),
		),
	).RunWithContext(ctx)
	return ok, err
}
