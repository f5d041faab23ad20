package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/imamik/squadfleet/internal/store"
)

const uniqueViolation = "23505"

// Deployments is a store.DeploymentStore. Records are stored as JSONB with
// the phone number and active flag lifted into columns for the uniqueness
// index.
type Deployments struct {
	db DB
}

// NewDeployments creates a deployment store over db.
func NewDeployments(db DB) *Deployments {
	return &Deployments{db: db}
}

func (d *Deployments) Get(ctx context.Context, tenantID string) (*store.DeploymentRecord, error) {
	var raw []byte
	err := d.db.QueryRow(ctx, `SELECT record FROM deployments WHERE tenant_id = $1`, tenantID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment %s: %w", tenantID, err)
	}

	var rec store.DeploymentRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode deployment %s: %w", tenantID, err)
	}
	return &rec, nil
}

const upsertDeployment = `INSERT INTO deployments (tenant_id, record, phone_number, active, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (tenant_id) DO UPDATE
SET record = EXCLUDED.record, phone_number = EXCLUDED.phone_number, active = EXCLUDED.active, updated_at = now()`

func (d *Deployments) Save(ctx context.Context, rec *store.DeploymentRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode deployment %s: %w", rec.TenantID, err)
	}
	if _, err := d.db.Exec(ctx, upsertDeployment, rec.TenantID, raw, rec.PhoneNumber, rec.Active); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", store.ErrPhoneNumberInUse, rec.PhoneNumber)
		}
		return fmt.Errorf("failed to save deployment %s: %w", rec.TenantID, err)
	}
	return nil
}

func (d *Deployments) ListActive(ctx context.Context) ([]store.DeploymentRecord, error) {
	rows, err := d.db.Query(ctx, `SELECT record FROM deployments WHERE active ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var out []store.DeploymentRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		var rec store.DeploymentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode deployment: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return out, nil
}
