package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/imamik/squadfleet/internal/store"
)

// Tenants is a store.TenantStore.
type Tenants struct {
	db DB
}

// NewTenants creates a tenant store over db.
func NewTenants(db DB) *Tenants {
	return &Tenants{db: db}
}

const selectAccount = `SELECT tenant_id, display_name, clinic_phone_number, has_payment_method, template_name, template_version, active
FROM tenant_accounts WHERE tenant_id = $1`

func (t *Tenants) GetAccount(ctx context.Context, tenantID string) (*store.Account, error) {
	var a store.Account
	err := t.db.QueryRow(ctx, selectAccount, tenantID).Scan(
		&a.TenantID, &a.DisplayName, &a.ClinicPhoneNumber, &a.HasPaymentMethod,
		&a.TemplateName, &a.TemplateVersion, &a.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", tenantID, err)
	}
	return &a, nil
}

const updateTemplateLink = `UPDATE tenant_accounts SET template_name = $2, template_version = $3 WHERE tenant_id = $1`

func (t *Tenants) LinkTemplate(ctx context.Context, tenantID, templateName, version string) error {
	if _, err := t.db.Exec(ctx, updateTemplateLink, tenantID, templateName, version); err != nil {
		return fmt.Errorf("failed to link template for %s: %w", tenantID, err)
	}
	return nil
}
