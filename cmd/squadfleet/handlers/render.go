package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/migration"
	"github.com/imamik/squadfleet/internal/template"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	greenStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	redStyle     = lipgloss.NewStyle().Foreground(colorRed)
	yellowStyle  = lipgloss.NewStyle().Foreground(colorYellow)
)

func statusStyle(s fleet.Status) lipgloss.Style {
	switch s {
	case fleet.StatusUpgraded:
		return greenStyle
	case fleet.StatusFailed:
		return redStyle
	case fleet.StatusPending:
		return yellowStyle
	default:
		return dimStyle
	}
}

func severityStyle(s migration.Severity) lipgloss.Style {
	switch s {
	case migration.SeverityBreaking:
		return redStyle
	case migration.SeverityWarning:
		return yellowStyle
	default:
		return dimStyle
	}
}

func rule(width int) string {
	return dimStyle.Render("  " + strings.Repeat("─", width))
}

// renderUpgradeReport produces a lipgloss-styled fleet upgrade report.
func renderUpgradeReport(r *fleet.Report) string {
	var b strings.Builder

	title := fmt.Sprintf("  squadfleet upgrade: %s -> %s", r.Template, r.TargetVersion)
	if r.DryRun {
		title += " (dry run)"
	}
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 40)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("  Tenants"))
	b.WriteString("\n")
	b.WriteString(rule(40))
	b.WriteString("\n")
	if len(r.Entries) == 0 {
		b.WriteString(dimStyle.Render("    no active deployments"))
		b.WriteString("\n")
	}
	for _, e := range r.Entries {
		line := fmt.Sprintf("    %-24s %-8s %s", e.TenantID, e.CurrentVersion, statusStyle(e.Status).Render(string(e.Status)))
		if e.Reason != "" {
			line += dimStyle.Render("  " + e.Reason)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if r.Migration != nil {
		b.WriteString("\n")
		b.WriteString(renderMigration(r.Migration))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Summary"))
	b.WriteString("\n")
	b.WriteString(rule(40))
	b.WriteString("\n")
	switch {
	case r.Preview != nil:
		fmt.Fprintf(&b, "    Total:        %d\n", r.Preview.Total)
		fmt.Fprintf(&b, "    Will upgrade: %d\n", r.Preview.WillUpgrade)
		fmt.Fprintf(&b, "    Will skip:    %d\n", r.Preview.WillSkip)
	case r.Summary != nil:
		fmt.Fprintf(&b, "    Total:    %d\n", r.Summary.Total)
		fmt.Fprintf(&b, "    Upgraded: %s\n", greenStyle.Render(fmt.Sprint(r.Summary.Upgraded)))
		fmt.Fprintf(&b, "    Skipped:  %d\n", r.Summary.Skipped)
		failed := fmt.Sprint(r.Summary.Failed)
		if r.Summary.Failed > 0 {
			failed = redStyle.Render(failed)
		}
		fmt.Fprintf(&b, "    Failed:   %s\n", failed)
	}
	return b.String()
}

// renderMigration produces the migration impact section.
func renderMigration(m *migration.Report) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  Migration impact"))
	b.WriteString("\n")
	b.WriteString(rule(40))
	b.WriteString("\n")
	b.WriteString("    " + m.Summary + "\n")
	for _, w := range m.Warnings {
		fmt.Fprintf(&b, "    %s %s\n", severityStyle(w.Severity).Render(fmt.Sprintf("[%s]", w.Severity)), w.Message)
	}
	if m.IsBreaking {
		b.WriteString(redStyle.Render("    This upgrade contains breaking changes."))
		b.WriteString("\n")
	}
	return b.String()
}

// renderDeployResult summarizes one deployment.
func renderDeployResult(r *deploy.Result) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  Deployed " + r.Record.TenantID))
	b.WriteString("\n")
	b.WriteString(rule(40))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    Squad:    %s\n", r.Record.SquadID)
	fmt.Fprintf(&b, "    Phone:    %s (%s)\n", r.Record.PhoneNumber, r.NumberSource)
	fmt.Fprintf(&b, "    Template: %s %s\n", r.Record.TemplateID, r.Record.TemplateVersion)
	fmt.Fprintf(&b, "    Voice:    %s/%s\n", r.Record.Voice.Provider, r.Record.Voice.VoiceID)
	for _, f := range r.AdvisoryFailures {
		b.WriteString(yellowStyle.Render(fmt.Sprintf("    warning: %s: %s", f.Step, f.Error)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderTemplate lists a template's members and tools.
func renderTemplate(t *template.Template, source template.Source) string {
	var b strings.Builder
	b.WriteString("\n")
	header := fmt.Sprintf("  %s %s", t.Name, t.Version)
	if source != "" {
		header += fmt.Sprintf(" (%s)", source)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(rule(40))
	b.WriteString("\n")
	for _, m := range t.Members {
		fmt.Fprintf(&b, "    %s\n", sectionStyle.Render(m.Name))
		if len(m.ToolRefs) > 0 {
			fmt.Fprintf(&b, "      tools:   %s\n", strings.Join(m.ToolRefs, ", "))
		}
		targets := make([]string, 0, len(m.Destinations))
		for _, d := range m.Destinations {
			targets = append(targets, d.Member)
		}
		if len(targets) > 0 {
			fmt.Fprintf(&b, "      handoff: %s\n", strings.Join(targets, ", "))
		}
	}
	return b.String()
}
