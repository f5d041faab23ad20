package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/squadfleet/internal/fleet"
)

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderEntries(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("squadfleet upgrade: %s -> %s", m.Template, m.TargetVersion)))

	status := " "
	finished, planned := m.counts()
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done:
		status += readyStyle.Render("Done")
	default:
		status += warningStyle.Render(fmt.Sprintf("%s %d/%d", currentSpinner(m.SpinnerFrame), finished, planned))
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(b, "  %s %d%%\n", bar, int(progress*100))
}

func renderEntries(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Tenants"))
	b.WriteString("\n")

	rows := m.Entries
	// Keep the footer on screen for large fleets.
	if m.Height > 8 && len(rows) > m.Height-8 {
		rows = rows[:m.Height-8]
	}
	for _, e := range rows {
		icon, style := entryIcon(e.Status, m.SpinnerFrame)
		line := fmt.Sprintf("  %s %-24s %-8s", icon, e.TenantID, e.CurrentVersion)
		if e.Reason != "" {
			line += "  " + e.Reason
		}
		b.WriteString(style(line))
		b.WriteString("\n")
	}
	if hidden := len(m.Entries) - len(rows); hidden > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ... %d more", hidden)))
		b.WriteString("\n")
	}
}

func renderFooter(b *strings.Builder, m Model) {
	parts := []string{fmt.Sprintf("elapsed: %s", formatDuration(time.Since(m.StartTime)))}
	if m.Report != nil && m.Report.Summary != nil {
		s := m.Report.Summary
		parts = append(parts, fmt.Sprintf("upgraded %d, skipped %d, failed %d", s.Upgraded, s.Skipped, s.Failed))
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  q: quit", strings.Join(parts, "  |  "))))
	b.WriteString("\n")
}

type styleFunc func(...string) string

func entryIcon(status fleet.Status, frame int) (string, styleFunc) {
	switch status {
	case fleet.StatusUpgraded:
		return checkMark, readyStyle.Render
	case fleet.StatusFailed:
		return crossMark, failedStyle.Render
	case fleet.StatusSkip:
		return skipMark, dimStyle.Render
	default:
		if frame == 0 {
			return pending, dimStyle.Render
		}
		return currentSpinner(frame), warningStyle.Render
	}
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	finished, planned := m.counts()
	if planned == 0 {
		return 1.0
	}
	return float64(finished) / float64(planned)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
