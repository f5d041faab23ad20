package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/squadfleet/internal/fleet"
)

// Executor runs a plan and reports entries as they finish.
type Executor interface {
	ExecuteWithProgress(ctx context.Context, plan *fleet.Plan, progress func(fleet.Entry)) (*fleet.Report, error)
}

// RunUpgradeTUI executes plan behind a live dashboard and returns the final
// report. Quitting the dashboard cancels tenants that have not started.
func RunUpgradeTUI(ctx context.Context, exec Executor, plan *fleet.Plan) (*fleet.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewUpgradeModel(plan), tea.WithAltScreen(), tea.WithContext(ctx))

	type outcome struct {
		report *fleet.Report
		err    error
	}
	result := make(chan outcome, 1)
	go func() {
		report, err := exec.ExecuteWithProgress(ctx, plan, func(e fleet.Entry) {
			p.Send(EntryMsg{Entry: e})
		})
		result <- outcome{report, err}
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{Report: report})
	}()

	_, runErr := p.Run()
	cancel()
	out := <-result
	if out.err != nil {
		return nil, out.err
	}
	if runErr != nil && out.report == nil {
		return nil, fmt.Errorf("TUI error: %w", runErr)
	}
	return out.report, nil
}
