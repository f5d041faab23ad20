package postgres

import (
	"context"
	"fmt"

	"github.com/imamik/squadfleet/internal/store"
)

// Registry is a store.PhoneRegistry.
type Registry struct {
	db DB
}

// NewRegistry creates a phone registry over db.
func NewRegistry(db DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) List(ctx context.Context) ([]store.RegistryRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT phone_number, phone_id, squad_id, tenant_id, updated_at FROM phone_registry ORDER BY phone_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list phone registry: %w", err)
	}
	defer rows.Close()

	var out []store.RegistryRecord
	for rows.Next() {
		var rec store.RegistryRecord
		if err := rows.Scan(&rec.PhoneNumber, &rec.PhoneID, &rec.SquadID, &rec.TenantID, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phone registry row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list phone registry: %w", err)
	}
	return out, nil
}

const upsertRegistry = `INSERT INTO phone_registry (phone_number, phone_id, squad_id, tenant_id, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (phone_number) DO UPDATE
SET phone_id = EXCLUDED.phone_id, squad_id = EXCLUDED.squad_id, tenant_id = EXCLUDED.tenant_id, updated_at = now()`

func (r *Registry) Upsert(ctx context.Context, rec store.RegistryRecord) error {
	if _, err := r.db.Exec(ctx, upsertRegistry, rec.PhoneNumber, rec.PhoneID, rec.SquadID, rec.TenantID); err != nil {
		return fmt.Errorf("failed to upsert phone registry %s: %w", rec.PhoneNumber, err)
	}
	return nil
}

func (r *Registry) Release(ctx context.Context, phoneNumber string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM phone_registry WHERE phone_number = $1`, phoneNumber); err != nil {
		return fmt.Errorf("failed to release %s: %w", phoneNumber, err)
	}
	return nil
}
