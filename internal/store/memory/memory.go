// Package memory provides in-process implementations of the store
// interfaces and the template repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/template"
)

// Tenants is an in-memory store.TenantStore.
type Tenants struct {
	mu       sync.Mutex
	accounts map[string]store.Account
}

// NewTenants creates a tenant store seeded with accounts.
func NewTenants(accounts ...store.Account) *Tenants {
	t := &Tenants{accounts: make(map[string]store.Account)}
	for _, a := range accounts {
		t.accounts[a.TenantID] = a
	}
	return t
}

// Put inserts or replaces an account.
func (t *Tenants) Put(a store.Account) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[a.TenantID] = a
}

func (t *Tenants) GetAccount(_ context.Context, tenantID string) (*store.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.accounts[tenantID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *Tenants) LinkTemplate(_ context.Context, tenantID, templateName, version string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.accounts[tenantID]
	if !ok {
		return nil
	}
	a.TemplateName = templateName
	a.TemplateVersion = version
	t.accounts[tenantID] = a
	return nil
}

// Deployments is an in-memory store.DeploymentStore.
type Deployments struct {
	mu      sync.Mutex
	records map[string]*store.DeploymentRecord
}

// NewDeployments creates a deployment store seeded with records.
func NewDeployments(records ...store.DeploymentRecord) *Deployments {
	d := &Deployments{records: make(map[string]*store.DeploymentRecord)}
	for i := range records {
		d.records[records[i].TenantID] = records[i].Clone()
	}
	return d
}

func (d *Deployments) Get(_ context.Context, tenantID string) (*store.DeploymentRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[tenantID]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (d *Deployments) Save(_ context.Context, rec *store.DeploymentRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec.Active && rec.PhoneNumber != "" {
		for id, other := range d.records {
			if id != rec.TenantID && other.Active && other.PhoneNumber == rec.PhoneNumber {
				return fmt.Errorf("%w: %s held by %s", store.ErrPhoneNumberInUse, rec.PhoneNumber, id)
			}
		}
	}
	d.records[rec.TenantID] = rec.Clone()
	return nil
}

func (d *Deployments) ListActive(_ context.Context) ([]store.DeploymentRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]store.DeploymentRecord, 0, len(d.records))
	for _, rec := range d.records {
		if rec.Active {
			out = append(out, *rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

// Registry is an in-memory store.PhoneRegistry.
type Registry struct {
	mu      sync.Mutex
	records map[string]store.RegistryRecord
}

// NewRegistry creates a registry seeded with records.
func NewRegistry(records ...store.RegistryRecord) *Registry {
	r := &Registry{records: make(map[string]store.RegistryRecord)}
	for _, rec := range records {
		r.records[rec.PhoneNumber] = rec
	}
	return r
}

func (r *Registry) List(_ context.Context) ([]store.RegistryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.RegistryRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out, nil
}

func (r *Registry) Upsert(_ context.Context, rec store.RegistryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	r.records[rec.PhoneNumber] = rec
	return nil
}

func (r *Registry) Release(_ context.Context, phoneNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, phoneNumber)
	return nil
}

// Templates is an in-memory template.Repository with the same
// compare-and-swap semantics as the Postgres repository.
type Templates struct {
	mu        sync.Mutex
	templates map[string]*template.Template
	writes    int
}

// NewTemplates creates a repository seeded with templates.
func NewTemplates(templates ...*template.Template) *Templates {
	r := &Templates{templates: make(map[string]*template.Template)}
	for _, t := range templates {
		r.templates[t.Name] = t.Clone()
	}
	return r
}

func (r *Templates) Get(_ context.Context, name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[name]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (r *Templates) CompareAndSwap(_ context.Context, t *template.Template) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.templates[t.Name]
	if ok && template.CompareVersions(current.Version, t.Version) > 0 {
		return false, nil
	}
	next := t.Clone()
	if ok {
		next.Active = current.Active
	}
	r.templates[t.Name] = next
	r.writes++
	return true, nil
}

// Writes returns the number of successful compare-and-swap writes.
func (r *Templates) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
