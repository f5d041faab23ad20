// Package tui provides a Bubble Tea terminal dashboard for fleet upgrades.
package tui

import "github.com/imamik/squadfleet/internal/fleet"

// EntryMsg reports a tenant whose upgrade finished.
type EntryMsg struct {
	Entry fleet.Entry
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error that aborted the run.
type ErrMsg struct{ Err error }

// DoneMsg signals that the batch is complete.
type DoneMsg struct {
	Report *fleet.Report
}
