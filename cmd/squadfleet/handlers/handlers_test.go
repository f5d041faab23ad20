package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/squadfleet/internal/config"
	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/provisioning"
	"github.com/imamik/squadfleet/internal/store/memory"
	"github.com/imamik/squadfleet/internal/template"
	sftesting "github.com/imamik/squadfleet/internal/testing"
	"github.com/imamik/squadfleet/internal/ui/tui"
	"github.com/imamik/squadfleet/internal/util/retry"
)

// stubApp wires an App over in-memory fakes and installs it as newApp for
// the duration of the test. Tests using it must not run in parallel.
func stubApp(t *testing.T, fx *sftesting.Fixture) *bytes.Buffer {
	t.Helper()

	cfg := config.Default()
	cfg.Memory = true
	log := logr.Discard()
	fast := []retry.Option{retry.WithMaxRetries(1), retry.WithInitialDelay(time.Millisecond)}

	templates := template.NewStore(fx.Templates, log)
	deployer := deploy.New(deploy.Dependencies{
		Tenants:     fx.Tenants,
		Deployments: fx.Deployments,
		Registry:    fx.Registry,
		Templates:   templates,
		Allocator: phonepool.NewAllocator(fx.Deployments, fx.Registry, fx.Telephony, log,
			phonepool.WithRetryOptions(fast...)),
		Provisioner: provisioning.NewProvisioner(fx.Voice, log, provisioning.WithRetryOptions(fast...)),
		Events:      events.Nop{},
	}, log, deploy.WithDefaultTemplate(cfg.Template.Name))
	app := &App{
		Config:    cfg,
		Log:       log,
		Templates: templates,
		Deployer:  deployer,
		Planner:   fleet.NewPlanner(fx.Deployments, templates, deployer, log),
	}

	var out bytes.Buffer
	origApp, origOut, origInteractive := newApp, stdout, isInteractive
	newApp = func(context.Context, string) (*App, error) { return app, nil }
	stdout = &out
	isInteractive = func() bool { return false }
	t.Cleanup(func() {
		templates.Wait()
		newApp, stdout, isInteractive = origApp, origOut, origInteractive
	})
	return &out
}

func seedTenant(fx *sftesting.Fixture, id, number string) {
	fx.Tenants.Put(sftesting.NewAccountBuilder(id).WithDisplayName("Maple Dental").Build())
	fx.Telephony.AddOwned(number)
}

func TestDeploy(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	out := stubApp(t, fx)

	err := Deploy(context.Background(), DeployOptions{TenantID: "clinic-1", VoiceProvider: "11labs", VoiceID: "rachel"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Deployed clinic-1")
	assert.Contains(t, out.String(), "+12125550100")
	assert.Contains(t, out.String(), "11labs/rachel")
}

func TestDeploy_JSON(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	out := stubApp(t, fx)

	require.NoError(t, Deploy(context.Background(), DeployOptions{TenantID: "clinic-1", JSON: true}))

	var res deploy.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.NotNil(t, res.Record)
	assert.Equal(t, "+12125550100", res.Record.PhoneNumber)
	assert.Equal(t, "clinic-receptionist", res.Record.TemplateID)
}

func TestDeploy_Failure(t *testing.T) {
	fx := sftesting.NewFixture()
	stubApp(t, fx)

	err := Deploy(context.Background(), DeployOptions{TenantID: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, deploy.ErrTenantNotFound)
	assert.Contains(t, err.Error(), "deployment of ghost failed")
}

func TestDeploy_ConfigError(t *testing.T) {
	orig := newApp
	defer func() { newApp = orig }()
	newApp = func(context.Context, string) (*App, error) { return nil, errors.New("failed to load config: boom") }

	err := Deploy(context.Background(), DeployOptions{TenantID: "clinic-1"})
	assert.EqualError(t, err, "failed to load config: boom")
}

func TestChangeNumber(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	fx.Telephony.AddOwned("+12125550101")
	out := stubApp(t, fx)
	ctx := context.Background()

	require.NoError(t, Deploy(ctx, DeployOptions{TenantID: "clinic-1"}))
	out.Reset()

	require.NoError(t, ChangeNumber(ctx, ChangeNumberOptions{TenantID: "clinic-1"}))
	assert.Contains(t, out.String(), "+12125550100 -> ")
	assert.Contains(t, out.String(), "+12125550101")
	assert.Contains(t, out.String(), "4 changes remaining")
}

func TestChangeNumber_NotDeployed(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	stubApp(t, fx)

	err := ChangeNumber(context.Background(), ChangeNumberOptions{TenantID: "clinic-1"})
	assert.ErrorIs(t, err, deploy.ErrNotDeployed)
}

func TestUpgrade_DryRun(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	out := stubApp(t, fx)
	ctx := context.Background()
	require.NoError(t, Deploy(ctx, DeployOptions{TenantID: "clinic-1"}))
	squads := fx.Voice.Calls("CreateSquad")
	out.Reset()

	require.NoError(t, Upgrade(ctx, UpgradeOptions{Force: true, DryRun: true}))

	assert.Contains(t, out.String(), "(dry run)")
	assert.Contains(t, out.String(), "clinic-1")
	assert.Contains(t, out.String(), "Will upgrade: 1")
	assert.Equal(t, squads, fx.Voice.Calls("CreateSquad"))
	assert.Zero(t, fx.Voice.Calls("UpdateSquad"))
}

func TestUpgrade_NothingPending(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	out := stubApp(t, fx)
	ctx := context.Background()
	require.NoError(t, Deploy(ctx, DeployOptions{TenantID: "clinic-1"}))
	out.Reset()

	require.NoError(t, Upgrade(ctx, UpgradeOptions{Yes: true}))
	assert.Contains(t, out.String(), fleet.ReasonAlreadyCurrent)
	assert.Zero(t, fx.Voice.Calls("UpdateSquad"))
}

func TestUpgrade_Forced(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	out := stubApp(t, fx)
	ctx := context.Background()
	require.NoError(t, Deploy(ctx, DeployOptions{TenantID: "clinic-1"}))
	out.Reset()

	require.NoError(t, Upgrade(ctx, UpgradeOptions{Force: true, Yes: true, JSON: true}))

	var report fleet.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.Summary)
	assert.Equal(t, fleet.Summary{Total: 1, Upgraded: 1}, *report.Summary)
	assert.Equal(t, 1, fx.Voice.Calls("UpdateSquad"))
}

func TestUpgrade_Cancelled(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	stubApp(t, fx)
	ctx := context.Background()
	require.NoError(t, Deploy(ctx, DeployOptions{TenantID: "clinic-1"}))

	origConfirm := confirm
	defer func() { confirm = origConfirm }()
	var asked string
	confirm = func(_ context.Context, title, _ string) (bool, error) {
		asked = title
		return false, nil
	}
	isInteractive = func() bool { return true }

	err := Upgrade(ctx, UpgradeOptions{Force: true})
	assert.ErrorIs(t, err, ErrUpgradeCancelled)
	assert.Equal(t, "Upgrade 1 tenants to clinic-receptionist 3.2.0?", asked)
	assert.Zero(t, fx.Voice.Calls("UpdateSquad"))
}

func TestUpgrade_UnknownVersion(t *testing.T) {
	stubApp(t, sftesting.NewFixture())

	err := Upgrade(context.Background(), UpgradeOptions{Version: "9.9.9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clinic-receptionist@9.9.9")
}

func TestTemplateShow(t *testing.T) {
	out := stubApp(t, sftesting.NewFixture())

	require.NoError(t, TemplateShow(context.Background(), TemplateShowOptions{}))
	assert.Contains(t, out.String(), "clinic-receptionist 3.2.0 (builtin)")
	assert.Contains(t, out.String(), "receptionist")
	assert.Contains(t, out.String(), "scheduler")
	assert.Contains(t, out.String(), "billing")
}

func TestTemplateDiff(t *testing.T) {
	older := template.MustBuiltin().Clone()
	older.Version = "3.0.0"
	kept := older.Members[:0]
	for _, m := range older.Members {
		if m.Name != "billing" {
			kept = append(kept, m)
		}
	}
	older.Members = kept

	fx := sftesting.NewFixture()
	fx.Templates = memory.NewTemplates(older)
	out := stubApp(t, fx)

	require.NoError(t, TemplateDiff(context.Background(), TemplateDiffOptions{From: "3.0.0"}))
	assert.Contains(t, out.String(), "Migration impact")
	assert.Contains(t, out.String(), "billing")
}

func TestTemplateDiff_RequiresFrom(t *testing.T) {
	err := TemplateDiff(context.Background(), TemplateDiffOptions{})
	assert.EqualError(t, err, "--from is required")
}

func TestTemplateVersions_NoArchive(t *testing.T) {
	stubApp(t, sftesting.NewFixture())

	err := TemplateVersions(context.Background(), TemplateVersionsOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no template archive configured")
}

func TestUpgrade_InteractiveUsesDashboard(t *testing.T) {
	fx := sftesting.NewFixture()
	seedTenant(fx, "clinic-1", "+12125550100")
	out := stubApp(t, fx)
	ctx := context.Background()
	require.NoError(t, Deploy(ctx, DeployOptions{TenantID: "clinic-1"}))
	out.Reset()

	origTUI := runUpgradeTUI
	defer func() { runUpgradeTUI = origTUI }()
	var streamed []fleet.Entry
	runUpgradeTUI = func(ctx context.Context, exec tui.Executor, plan *fleet.Plan) (*fleet.Report, error) {
		return exec.ExecuteWithProgress(ctx, plan, func(e fleet.Entry) { streamed = append(streamed, e) })
	}
	isInteractive = func() bool { return true }

	require.NoError(t, Upgrade(ctx, UpgradeOptions{Force: true, Yes: true}))
	require.Len(t, streamed, 1)
	assert.Equal(t, fleet.StatusUpgraded, streamed[0].Status)
	assert.Contains(t, out.String(), "Upgraded: 1")
}
