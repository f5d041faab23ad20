package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/metrics"
	"github.com/imamik/squadfleet/internal/migration"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/template"
	"github.com/imamik/squadfleet/internal/util/async"
)

// Preview counts a dry run.
type Preview struct {
	Total       int `json:"total"`
	WillUpgrade int `json:"willUpgrade"`
	WillSkip    int `json:"willSkip"`
}

// Summary counts an executed batch.
type Summary struct {
	Total    int `json:"total"`
	Upgraded int `json:"upgraded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Report is the result of Execute. Dry runs carry Migration and Preview;
// executed batches carry Summary.
type Report struct {
	DryRun        bool              `json:"dryRun"`
	Template      string            `json:"template"`
	TargetVersion string            `json:"targetVersion"`
	Entries       []Entry           `json:"entries"`
	Migration     *migration.Report `json:"migration,omitempty"`
	Preview       *Preview          `json:"preview,omitempty"`
	Summary       *Summary          `json:"summary,omitempty"`
}

// Execute runs a plan. A dry run makes no changes. Otherwise each pending
// tenant is re-deployed with the plan's target, keeping its voice and
// knowledge; a failure marks that entry failed and never stops the others.
func (p *Planner) Execute(ctx context.Context, plan *Plan, dryRun bool) (*Report, error) {
	if plan == nil || plan.Target == nil {
		return nil, errors.New("plan has no target template")
	}
	report := &Report{
		DryRun:        dryRun,
		Template:      plan.Target.Name,
		TargetVersion: plan.Target.Version,
		Entries:       append([]Entry(nil), plan.Entries...),
	}

	if dryRun {
		report.Migration = p.migrationReport(ctx, plan)
		preview := &Preview{Total: len(report.Entries)}
		for _, e := range report.Entries {
			if e.Status == StatusPending {
				preview.WillUpgrade++
			} else {
				preview.WillSkip++
			}
		}
		report.Preview = preview
		return report, nil
	}
	return p.run(ctx, plan, report, nil)
}

// ExecuteWithProgress runs a plan for real and calls progress with each
// pending entry as soon as its tenant finishes. progress is called from
// worker goroutines.
func (p *Planner) ExecuteWithProgress(ctx context.Context, plan *Plan, progress func(Entry)) (*Report, error) {
	if plan == nil || plan.Target == nil {
		return nil, errors.New("plan has no target template")
	}
	report := &Report{
		Template:      plan.Target.Name,
		TargetVersion: plan.Target.Version,
		Entries:       append([]Entry(nil), plan.Entries...),
	}
	return p.run(ctx, plan, report, progress)
}

func (p *Planner) run(ctx context.Context, plan *Plan, report *Report, progress func(Entry)) (*Report, error) {
	log := p.log.WithValues("template", plan.Target.Name, "version", plan.Target.Version)
	log.Info("starting fleet upgrade", "tenants", len(report.Entries), "pending", len(plan.Pending()))

	var (
		tasks   []async.Task
		indexes []int
	)
	for i, e := range report.Entries {
		if e.Status != StatusPending {
			continue
		}
		tasks = append(tasks, async.Task{
			Name: e.TenantID,
			Func: func(ctx context.Context) error {
				_, err := p.deployer.Deploy(ctx, deploy.Request{TenantID: e.TenantID, Template: plan.Target})
				if progress != nil {
					progress(settle(e, plan.Target.Version, err))
				}
				return err
			},
		})
		indexes = append(indexes, i)
	}

	results := async.RunBounded(ctx, p.concurrency, tasks)
	for k, res := range results {
		e := &report.Entries[indexes[k]]
		*e = settle(*e, plan.Target.Version, res.Err)
		if res.Err != nil {
			log.Error(res.Err, "tenant upgrade failed", "tenant", e.TenantID)
			continue
		}
		log.V(1).Info("tenant upgraded", "tenant", e.TenantID)
	}

	summary := &Summary{Total: len(report.Entries)}
	for _, e := range report.Entries {
		switch e.Status {
		case StatusUpgraded:
			summary.Upgraded++
		case StatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
		metrics.RecordUpgradeEntry(string(e.Status))
	}
	report.Summary = summary

	log.Info("fleet upgrade completed",
		"upgraded", summary.Upgraded,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	if err := p.events.Publish(ctx, events.New(events.UpgradeCompleted, "", map[string]any{
		"template": plan.Target.Name,
		"version":  plan.Target.Version,
		"upgraded": summary.Upgraded,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	})); err != nil {
		log.Error(err, "failed to publish upgrade event")
	}
	return report, nil
}

// settle records the outcome of re-deploying a pending entry.
func settle(e Entry, version string, err error) Entry {
	if err != nil {
		e.Status = StatusFailed
		e.Reason = err.Error()
		return e
	}
	e.Status = StatusUpgraded
	e.CurrentVersion = version
	return e
}

// migrationReport diffs the oldest pending version against the target. It
// returns nil when nothing is pending or no earlier snapshot is available.
func (p *Planner) migrationReport(ctx context.Context, plan *Plan) *migration.Report {
	from := ""
	for _, e := range plan.Pending() {
		if from == "" || template.CompareVersions(e.CurrentVersion, from) < 0 {
			from = e.CurrentVersion
		}
	}
	if from == "" {
		return nil
	}

	base, err := p.templates.Snapshot(ctx, plan.Target.Name, from)
	if err != nil {
		p.log.V(1).Info("no snapshot for migration base, using persisted copy",
			"template", plan.Target.Name, "version", from, "error", err.Error())
		base, err = p.templates.Persisted(ctx, plan.Target.Name)
		if err != nil || base == nil {
			p.log.Info("migration report unavailable", "template", plan.Target.Name, "from", from)
			return nil
		}
	}
	return migration.Diff(base, plan.Target)
}

// UpgradeRequest selects an upgrade target.
type UpgradeRequest struct {
	Template string `json:"template"`

	// Version pins an exact snapshot; empty means the effective version.
	Version string `json:"version,omitempty"`
	Force   bool   `json:"force"`
	DryRun  bool   `json:"dryRun"`
}

// Upgrade resolves the target, plans and executes.
func (p *Planner) Upgrade(ctx context.Context, req UpgradeRequest) (*Report, error) {
	target, err := p.Target(ctx, req.Template, req.Version)
	if err != nil {
		return nil, err
	}
	plan, err := p.Plan(ctx, target, req.Force)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, plan, req.DryRun)
}

// Target returns the template to upgrade to.
func (p *Planner) Target(ctx context.Context, name, version string) (*template.Template, error) {
	if version != "" {
		t, err := p.templates.Snapshot(ctx, name, version)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s@%s: %w", name, version, err)
		}
		return t, nil
	}
	t, _, err := p.templates.Resolve(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template %s: %w", name, err)
	}
	return t, nil
}
