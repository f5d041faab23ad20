package fleet

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/imamik/squadfleet/internal/template"
)

// Status is the state of one plan entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSkip     Status = "skip"
	StatusUpgraded Status = "upgraded"
	StatusFailed   Status = "failed"
)

// Skip reasons.
const (
	ReasonNoTemplate     = "no template linked"
	ReasonAlreadyCurrent = "already current"
)

// Entry is the plan for one tenant.
type Entry struct {
	TenantID       string `json:"tenantId"`
	CurrentVersion string `json:"currentVersion"`
	TargetVersion  string `json:"targetVersion"`
	Status         Status `json:"status"`
	Reason         string `json:"reason,omitempty"`
}

// Plan is the per-tenant outcome of planning an upgrade to Target.
type Plan struct {
	Target  *template.Template `json:"-"`
	Force   bool               `json:"force"`
	Entries []Entry            `json:"entries"`
}

// Pending returns the entries that will be upgraded.
func (p *Plan) Pending() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.Status == StatusPending {
			out = append(out, e)
		}
	}
	return out
}

// Plan marks every tenant with an active deployment as pending or skip.
// Tenants already at or above the target version are skipped unless force
// is set. Entries are ordered by tenant id.
func (p *Planner) Plan(ctx context.Context, target *template.Template, force bool) (*Plan, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: no upgrade target", template.ErrNoTemplate)
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upgrade target: %w", err)
	}

	records, err := p.deployments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	plan := &Plan{Target: target.Clone(), Force: force, Entries: make([]Entry, 0, len(records))}
	for _, rec := range records {
		e := Entry{
			TenantID:       rec.TenantID,
			CurrentVersion: rec.TemplateVersion,
			TargetVersion:  target.Version,
			Status:         StatusPending,
		}
		switch {
		case rec.TemplateID == "":
			e.Status, e.Reason = StatusSkip, ReasonNoTemplate
		case rec.TemplateID != target.Name:
			e.Status, e.Reason = StatusSkip, fmt.Sprintf("linked to template %s", rec.TemplateID)
		case !force && template.CompareVersions(rec.TemplateVersion, target.Version) >= 0:
			e.Status, e.Reason = StatusSkip, ReasonAlreadyCurrent
		}
		plan.Entries = append(plan.Entries, e)
	}
	slices.SortFunc(plan.Entries, func(a, b Entry) int { return strings.Compare(a.TenantID, b.TenantID) })

	p.log.V(1).Info("planned upgrade",
		"template", target.Name,
		"version", target.Version,
		"force", force,
		"tenants", len(plan.Entries),
		"pending", len(plan.Pending()))
	return plan, nil
}
