// Package migration computes the impact of moving tenants from one template
// version to another.
//
// A report is advisory: it never blocks an upgrade. It is a pure function of
// the two template snapshots, so a fleet upgrade computes it once.
package migration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/imamik/squadfleet/internal/template"
)

// Severity classifies a warning.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// Warning types.
const (
	MemberAdded         = "member_added"
	MemberRemoved       = "member_removed"
	ToolRemoved         = "tool_removed"
	DestinationsChanged = "destinations_changed"
)

// Warning is one detected difference.
type Warning struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	AffectedMember string   `json:"affectedMember,omitempty"`
	Message        string   `json:"message"`
}

// Report is the result of Diff.
type Report struct {
	FromVersion string    `json:"fromVersion"`
	ToVersion   string    `json:"toVersion"`
	IsBreaking  bool      `json:"isBreaking"`
	Warnings    []Warning `json:"warnings"`
	Summary     string    `json:"summary"`
}

// Count returns the number of warnings with severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Severity == s {
			n++
		}
	}
	return n
}

// Diff compares members by name. Added members are info, removed members are
// breaking, tool references dropped from a surviving member are warnings and
// any other change to a surviving member's handoff targets is breaking.
// Handoff edges to a removed member are covered by that member's removal.
func Diff(from, to *template.Template) *Report {
	r := &Report{
		FromVersion: from.Version,
		ToVersion:   to.Version,
		Warnings:    []Warning{},
	}

	removed := make(map[string]bool)
	for _, m := range from.Members {
		if _, ok := to.Member(m.Name); !ok {
			removed[m.Name] = true
			r.add(Warning{
				Type:           MemberRemoved,
				Severity:       SeverityBreaking,
				AffectedMember: m.Name,
				Message:        fmt.Sprintf("member %q is removed; calls routed to it will fail", m.Name),
			})
		}
	}

	for _, m := range to.Members {
		if _, ok := from.Member(m.Name); !ok {
			r.add(Warning{
				Type:           MemberAdded,
				Severity:       SeverityInfo,
				AffectedMember: m.Name,
				Message:        fmt.Sprintf("member %q is added", m.Name),
			})
		}
	}

	for _, old := range from.Members {
		cur, ok := to.Member(old.Name)
		if !ok {
			continue
		}
		for _, ref := range old.ToolRefs {
			if !slices.Contains(cur.ToolRefs, ref) {
				r.add(Warning{
					Type:           ToolRemoved,
					Severity:       SeverityWarning,
					AffectedMember: old.Name,
					Message:        fmt.Sprintf("tool %q is no longer available to %q; tenant customizations using it may be orphaned", ref, old.Name),
				})
			}
		}

		before := destinationTargets(old, removed)
		after := destinationTargets(cur, removed)
		if !slices.Equal(before, after) {
			r.add(Warning{
				Type:           DestinationsChanged,
				Severity:       SeverityBreaking,
				AffectedMember: old.Name,
				Message: fmt.Sprintf("handoff targets of %q change from [%s] to [%s]",
					old.Name, strings.Join(before, ", "), strings.Join(after, ", ")),
			})
		}
	}

	r.Summary = summarize(r)
	return r
}

func (r *Report) add(w Warning) {
	r.Warnings = append(r.Warnings, w)
	if w.Severity == SeverityBreaking {
		r.IsBreaking = true
	}
}

func destinationTargets(m template.Member, removed map[string]bool) []string {
	targets := make([]string, 0, len(m.Destinations))
	for _, d := range m.Destinations {
		if removed[d.Member] || slices.Contains(targets, d.Member) {
			continue
		}
		targets = append(targets, d.Member)
	}
	slices.Sort(targets)
	return targets
}

func summarize(r *Report) string {
	if len(r.Warnings) == 0 {
		return fmt.Sprintf("%s -> %s: no changes affecting deployed squads", r.FromVersion, r.ToVersion)
	}
	return fmt.Sprintf("%s -> %s: %d breaking, %d warning, %d info",
		r.FromVersion, r.ToVersion,
		r.Count(SeverityBreaking), r.Count(SeverityWarning), r.Count(SeverityInfo))
}
