package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/imamik/squadfleet/internal/template"
)

// Templates is a template.Repository. Versions are stored as numeric
// major/minor/patch columns so the compare-and-swap can order them in SQL.
// Pre-release versions are refused before they reach the database.
type Templates struct {
	db DB
}

// NewTemplates creates a template repository over db.
func NewTemplates(db DB) *Templates {
	return &Templates{db: db}
}

func (r *Templates) Get(ctx context.Context, name string) (*template.Template, error) {
	var (
		raw    []byte
		active bool
	)
	err := r.db.QueryRow(ctx, `SELECT body, active FROM templates WHERE name = $1`, name).Scan(&raw, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", name, err)
	}

	var t template.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", name, err)
	}
	t.Active = active
	return &t, nil
}

const casTemplate = `INSERT INTO templates (name, version, major, minor, patch, body, active, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (name) DO UPDATE
SET version = EXCLUDED.version, major = EXCLUDED.major, minor = EXCLUDED.minor, patch = EXCLUDED.patch,
    body = EXCLUDED.body, updated_at = now()
WHERE (templates.major, templates.minor, templates.patch) <= (EXCLUDED.major, EXCLUDED.minor, EXCLUDED.patch)`

func (r *Templates) CompareAndSwap(ctx context.Context, t *template.Template) (bool, error) {
	major, minor, patch, err := template.VersionParts(t.Version)
	if err != nil {
		return false, err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return false, fmt.Errorf("failed to encode template %s: %w", t.Name, err)
	}

	tag, err := r.db.Exec(ctx, casTemplate, t.Name, t.Version, major, minor, patch, raw, t.Active)
	if err != nil {
		return false, fmt.Errorf("failed to write template %s: %w", t.Name, err)
	}
	return tag.RowsAffected() == 1, nil
}
