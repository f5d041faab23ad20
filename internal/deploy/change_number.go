package deploy

import (
	"context"
	"fmt"

	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/store"
)

// ChangeResult is the outcome of ChangeNumber.
type ChangeResult struct {
	Record           *store.DeploymentRecord `json:"record"`
	OldNumber        string                  `json:"oldNumber"`
	NewNumber        string                  `json:"newNumber"`
	ChangesRemaining int                     `json:"changesRemaining"`
	AdvisoryFailures []StepFailure           `json:"advisoryFailures,omitempty"`
}

// ChangeNumber moves a deployed tenant to a different phone number. Each
// tenant may change its number at most ChangeQuota times; the current
// number is never handed back.
func (d *Deployer) ChangeNumber(ctx context.Context, tenantID string) (*ChangeResult, error) {
	var result *ChangeResult
	err := d.withTenantLease(ctx, tenantID, func() error {
		var err error
		result, err = d.changeNumber(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.publish(ctx, events.New(events.PhoneChanged, tenantID, map[string]any{
		"oldNumber": result.OldNumber,
		"newNumber": result.NewNumber,
	}))
	return result, nil
}

func (d *Deployer) changeNumber(ctx context.Context, tenantID string) (*ChangeResult, error) {
	log := d.log.WithValues("tenant", tenantID)

	var (
		rec        *store.DeploymentRecord
		account    *store.Account
		allocation *phonepool.Allocation
		oldNumber  string
		phoneID    string
	)

	steps := []Step{
		{Name: "check-quota", Class: Fatal, Run: func(ctx context.Context) error {
			var err error
			rec, err = d.deployments.Get(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("failed to load deployment record: %w", err)
			}
			if rec == nil || rec.PhoneNumber == "" || rec.SquadID == "" {
				return fmt.Errorf("%w: %s", ErrNotDeployed, tenantID)
			}
			if rec.PhoneChangeCount >= d.changeQuota {
				return fmt.Errorf("%w: %d of %d changes used", ErrChangeQuotaExceeded, rec.PhoneChangeCount, d.changeQuota)
			}
			oldNumber = rec.PhoneNumber
			account, err = d.loadAccount(ctx, tenantID)
			return err
		}},
		{Name: "allocate-number", Class: Fatal, Run: func(ctx context.Context) error {
			var err error
			allocation, err = d.allocator.Allocate(ctx, phonepool.AllocateRequest{
				TenantID:     tenantID,
				ClinicNumber: account.ClinicPhoneNumber,
				Reallocate:   true,
				Exclude:      []string{oldNumber},
			})
			return err
		}},
		{Name: "link-phone", Class: Fatal, Run: func(ctx context.Context) error {
			phone, err := d.provisioner.EnsurePhoneNumber(ctx, tenantID, allocation.Number, rec.SquadID)
			if err != nil {
				return err
			}
			phoneID = phone.ID
			return nil
		}},
		{Name: "persist", Class: Fatal, Run: func(ctx context.Context) error {
			next := rec.Clone()
			next.PhoneNumber = allocation.Number
			next.PhoneID = phoneID
			next.PhoneChangeCount++
			if err := d.deployments.Save(ctx, next); err != nil {
				return fmt.Errorf("failed to save deployment record: %w", err)
			}
			rec = next
			return nil
		}},
		{Name: "phone-registry", Class: Advisory, Run: func(ctx context.Context) error {
			if err := d.registry.Upsert(ctx, store.RegistryRecord{
				PhoneNumber: rec.PhoneNumber,
				PhoneID:     rec.PhoneID,
				SquadID:     rec.SquadID,
				TenantID:    tenantID,
				UpdatedAt:   d.now().UTC(),
			}); err != nil {
				return err
			}
			return d.registry.Release(ctx, oldNumber)
		}},
	}

	failures, err := RunSteps(ctx, log, steps)
	if err != nil {
		return nil, err
	}

	log.Info("phone number changed", "from", oldNumber, "to", rec.PhoneNumber, "changes", rec.PhoneChangeCount)
	return &ChangeResult{
		Record:           rec.Clone(),
		OldNumber:        oldNumber,
		NewNumber:        rec.PhoneNumber,
		ChangesRemaining: max(d.changeQuota-rec.PhoneChangeCount, 0),
		AdvisoryFailures: failures,
	}, nil
}
