package fleet_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/migration"
	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/provisioning"
	"github.com/imamik/squadfleet/internal/template"
	sftesting "github.com/imamik/squadfleet/internal/testing"
	"github.com/imamik/squadfleet/internal/util/naming"
	"github.com/imamik/squadfleet/internal/util/retry"
)

// nextVersion is the built-in template at 4.0.0 with an extra triage member.
func nextVersion() *template.Template {
	t := template.MustBuiltin()
	t.Version = "4.0.0"
	t.Members = append(t.Members, template.Member{
		Name:         "triage",
		SystemPrompt: "You decide how urgent a caller's symptoms are for {{clinic_name}}.",
		Destinations: []template.Destination{{Member: "receptionist"}},
	})
	return t
}

func statuses(entries []fleet.Entry) map[string]fleet.Status {
	out := make(map[string]fleet.Status, len(entries))
	for _, e := range entries {
		out[e.TenantID] = e.Status
	}
	return out
}

var _ = Describe("Fleet upgrades", func() {
	var (
		ctx       context.Context
		fx        *sftesting.Fixture
		published *sftesting.RecordingPublisher
		deployer  *deploy.Deployer
		planner   *fleet.Planner
		builtin   *template.Template
	)

	deployTenants := func(ids ...string) {
		for i, id := range ids {
			fx.Tenants.Put(sftesting.NewAccountBuilder(id).Build())
			fx.Telephony.AddOwned(fmt.Sprintf("+1212555%04d", 100+i))
			_, err := deployer.Deploy(ctx, deploy.Request{TenantID: id})
			Expect(err).NotTo(HaveOccurred())
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		fx = sftesting.NewFixture()
		published = &sftesting.RecordingPublisher{}
		builtin = template.MustBuiltin()

		fast := []retry.Option{retry.WithMaxRetries(1), retry.WithInitialDelay(time.Millisecond)}
		templates := template.NewStore(fx.Templates, logr.Discard())
		DeferCleanup(templates.Wait)

		deployer = deploy.New(deploy.Dependencies{
			Tenants:     fx.Tenants,
			Deployments: fx.Deployments,
			Registry:    fx.Registry,
			Templates:   templates,
			Allocator: phonepool.NewAllocator(fx.Deployments, fx.Registry, fx.Telephony, logr.Discard(),
				phonepool.WithRetryOptions(fast...)),
			Provisioner: provisioning.NewProvisioner(fx.Voice, logr.Discard(),
				provisioning.WithRetryOptions(fast...)),
		}, logr.Discard(), deploy.WithDefaultTemplate(builtin.Name))

		planner = fleet.NewPlanner(fx.Deployments, templates, deployer, logr.Discard(),
			fleet.WithConcurrency(2),
			fleet.WithEvents(published),
		)
	})

	Describe("planning", func() {
		BeforeEach(func() {
			deployTenants("t1", "t2")
			legacy := sftesting.NewRecordBuilder("legacy").WithTemplate("", "").Build()
			Expect(fx.Deployments.Save(ctx, &legacy)).To(Succeed())
		})

		It("skips tenants already at the target version", func() {
			plan, err := planner.Plan(ctx, builtin, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Entries).To(HaveLen(3))
			Expect(plan.Pending()).To(BeEmpty())

			for _, e := range plan.Entries {
				switch e.TenantID {
				case "legacy":
					Expect(e.Reason).To(Equal(fleet.ReasonNoTemplate))
				default:
					Expect(e.Reason).To(Equal(fleet.ReasonAlreadyCurrent))
					Expect(e.CurrentVersion).To(Equal(builtin.Version))
				}
			}
		})

		It("marks current tenants pending when forced", func() {
			plan, err := planner.Plan(ctx, builtin, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses(plan.Entries)).To(Equal(map[string]fleet.Status{
				"legacy": fleet.StatusSkip,
				"t1":     fleet.StatusPending,
				"t2":     fleet.StatusPending,
			}))
		})

		It("marks older tenants pending", func() {
			plan, err := planner.Plan(ctx, nextVersion(), false)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Pending()).To(HaveLen(2))
			Expect(plan.Entries[0].TenantID).To(Equal("legacy"))
		})

		It("rejects an invalid target", func() {
			_, err := planner.Plan(ctx, &template.Template{Name: builtin.Name}, false)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("dry run and execution", func() {
		BeforeEach(func() {
			deployTenants("t1", "t2", "t3")

			rec, err := fx.Deployments.Get(ctx, "t3")
			Expect(err).NotTo(HaveOccurred())
			rec.TemplateVersion = "4.0.0"
			Expect(fx.Deployments.Save(ctx, rec)).To(Succeed())
		})

		It("makes no changes in a dry run", func() {
			updates := fx.Voice.Calls("UpdateSquad")

			plan, err := planner.Plan(ctx, nextVersion(), false)
			Expect(err).NotTo(HaveOccurred())
			report, err := planner.Execute(ctx, plan, true)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.DryRun).To(BeTrue())
			Expect(report.Summary).To(BeNil())
			Expect(*report.Preview).To(Equal(fleet.Preview{Total: 3, WillUpgrade: 2, WillSkip: 1}))
			Expect(fx.Voice.Calls("UpdateSquad")).To(Equal(updates))
			Expect(published.Types()).NotTo(ContainElement(events.UpgradeCompleted))

			rec, err := fx.Deployments.Get(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.TemplateVersion).To(Equal(builtin.Version))
		})

		It("reports the migration once from the oldest pending version", func() {
			plan, err := planner.Plan(ctx, nextVersion(), false)
			Expect(err).NotTo(HaveOccurred())
			report, err := planner.Execute(ctx, plan, true)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Migration).NotTo(BeNil())
			Expect(report.Migration.FromVersion).To(Equal(builtin.Version))
			Expect(report.Migration.ToVersion).To(Equal("4.0.0"))
			Expect(report.Migration.IsBreaking).To(BeFalse())
			Expect(report.Migration.Warnings).To(HaveLen(1))
			Expect(report.Migration.Warnings[0].Type).To(Equal(migration.MemberAdded))
		})

		It("upgrades exactly the tenants the dry run marked pending", func() {
			plan, err := planner.Plan(ctx, nextVersion(), false)
			Expect(err).NotTo(HaveOccurred())
			preview, err := planner.Execute(ctx, plan, true)
			Expect(err).NotTo(HaveOccurred())

			report, err := planner.Execute(ctx, plan, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(*report.Summary).To(Equal(fleet.Summary{Total: 3, Upgraded: 2, Skipped: 1}))

			before := statuses(preview.Entries)
			for id, status := range statuses(report.Entries) {
				if before[id] == fleet.StatusPending {
					Expect(status).To(Equal(fleet.StatusUpgraded), id)
				} else {
					Expect(status).To(Equal(fleet.StatusSkip), id)
				}
			}

			for _, id := range []string{"t1", "t2"} {
				rec, err := fx.Deployments.Get(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(rec.TemplateVersion).To(Equal("4.0.0"))

				squad, ok := fx.Voice.Squad(rec.SquadID)
				Expect(ok).To(BeTrue())
				Expect(squad.Members).To(HaveLen(4))
			}
			Expect(published.Types()).To(ContainElement(events.UpgradeCompleted))
		})

		It("keeps squad ids and voices across an upgrade", func() {
			before, err := fx.Deployments.Get(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())

			_, err = planner.Upgrade(ctx, fleet.UpgradeRequest{Template: builtin.Name, Force: true})
			Expect(err).NotTo(HaveOccurred())

			after, err := fx.Deployments.Get(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(after.SquadID).To(Equal(before.SquadID))
			Expect(after.Voice).To(Equal(before.Voice))
			Expect(after.PhoneNumber).To(Equal(before.PhoneNumber))
		})
	})

	Describe("batch isolation", func() {
		It("upgrades the other tenants when one squad write fails", func() {
			deployTenants("t1", "t2", "t3", "t4", "t5")

			failing := naming.Squad("t3")
			fx.Voice.UpdateSquadHook = func(_ string, squad voice.Squad) error {
				if squad.Name == failing {
					return &voice.APIError{StatusCode: 422, Message: "squad rejected"}
				}
				return nil
			}
			fx.Voice.CreateSquadHook = func(squad voice.Squad) error {
				if squad.Name == failing {
					return &voice.APIError{StatusCode: 422, Message: "squad rejected"}
				}
				return nil
			}

			plan, err := planner.Plan(ctx, nextVersion(), false)
			Expect(err).NotTo(HaveOccurred())
			report, err := planner.Execute(ctx, plan, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(*report.Summary).To(Equal(fleet.Summary{Total: 5, Upgraded: 4, Failed: 1}))
			for _, e := range report.Entries {
				rec, err := fx.Deployments.Get(ctx, e.TenantID)
				Expect(err).NotTo(HaveOccurred())
				if e.TenantID == "t3" {
					Expect(e.Status).To(Equal(fleet.StatusFailed))
					Expect(e.Reason).To(ContainSubstring("squad rejected"))
					Expect(rec.TemplateVersion).To(Equal(builtin.Version))
					continue
				}
				Expect(e.Status).To(Equal(fleet.StatusUpgraded))
				Expect(rec.TemplateVersion).To(Equal("4.0.0"))
			}
		})
	})

	Describe("progress", func() {
		It("reports each pending tenant once as it finishes", func() {
			deployTenants("t1", "t2", "t3")

			plan, err := planner.Plan(ctx, nextVersion(), false)
			Expect(err).NotTo(HaveOccurred())

			var (
				mu   sync.Mutex
				seen []fleet.Entry
			)
			report, err := planner.ExecuteWithProgress(ctx, plan, func(e fleet.Entry) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, e)
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.DryRun).To(BeFalse())
			Expect(*report.Summary).To(Equal(fleet.Summary{Total: 3, Upgraded: 3}))

			Expect(seen).To(HaveLen(3))
			for _, e := range seen {
				Expect(e.Status).To(Equal(fleet.StatusUpgraded))
				Expect(e.CurrentVersion).To(Equal("4.0.0"))
			}
		})
	})
})
