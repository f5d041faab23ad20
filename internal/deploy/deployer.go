package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/provisioning"
	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/template"
)

// TemplateResolver returns the effective template for a name.
type TemplateResolver interface {
	Resolve(ctx context.Context, name string) (*template.Template, template.Source, error)
}

// NumberAllocator hands out phone numbers.
type NumberAllocator interface {
	Allocate(ctx context.Context, req phonepool.AllocateRequest) (*phonepool.Allocation, error)
}

// Dependencies are the collaborators of a Deployer.
type Dependencies struct {
	Tenants     store.TenantStore
	Deployments store.DeploymentStore
	Registry    store.PhoneRegistry
	Templates   TemplateResolver
	Allocator   NumberAllocator
	Provisioner *provisioning.Provisioner

	// Events is optional.
	Events events.Publisher
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithChangeQuota sets the lifetime phone number change limit.
func WithChangeQuota(n int) Option {
	return func(d *Deployer) { d.changeQuota = n }
}

// WithDefaultTemplate sets the template used when neither the request nor
// the account names one.
func WithDefaultTemplate(name string) Option {
	return func(d *Deployer) { d.defaultTemplate = name }
}

// WithDefaultVoice sets the voice used when a first deployment names none.
func WithDefaultVoice(v template.Voice) Option {
	return func(d *Deployer) { d.defaultVoice = v }
}

// WithLocker shares tenant leases between processes.
func WithLocker(l phonepool.Locker) Option {
	return func(d *Deployer) { d.locker = l }
}

// WithLeaseTTL bounds how long a crashed deployment holds a tenant lease.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(d *Deployer) { d.leaseTTL = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Deployer) { d.now = now }
}

// Deployer runs deployments and number changes.
type Deployer struct {
	tenants     store.TenantStore
	deployments store.DeploymentStore
	registry    store.PhoneRegistry
	templates   TemplateResolver
	allocator   NumberAllocator
	provisioner *provisioning.Provisioner
	events      events.Publisher
	log         logr.Logger

	changeQuota     int
	defaultTemplate string
	defaultVoice    template.Voice
	locker          phonepool.Locker
	leaseTTL        time.Duration
	now             func() time.Time
}

// New creates a Deployer.
func New(deps Dependencies, log logr.Logger, opts ...Option) *Deployer {
	d := &Deployer{
		tenants:         deps.Tenants,
		deployments:     deps.Deployments,
		registry:        deps.Registry,
		templates:       deps.Templates,
		allocator:       deps.Allocator,
		provisioner:     deps.Provisioner,
		events:          deps.Events,
		log:             log.WithName("deploy"),
		changeQuota:     5,
		defaultVoice:    template.Voice{Provider: "11labs", VoiceID: "sarah"},
		locker:          phonepool.NewLocalLocker(),
		leaseTTL:        2 * time.Minute,
		now:             time.Now,
	}
	if d.events == nil {
		d.events = events.Nop{}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ChangeQuota returns the lifetime phone number change limit.
func (d *Deployer) ChangeQuota() int {
	return d.changeQuota
}

// withTenantLease runs fn while holding the tenant's lease.
func (d *Deployer) withTenantLease(ctx context.Context, tenantID string, fn func() error) error {
	lease, err := d.locker.Acquire(ctx, "tenant:"+tenantID, d.leaseTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			d.log.Error(err, "failed to release tenant lease", "tenant", tenantID)
		}
	}()
	return fn()
}

// publish sends an event; failures are logged.
func (d *Deployer) publish(ctx context.Context, e events.Event) {
	if err := d.events.Publish(ctx, e); err != nil {
		d.log.Error(err, "failed to publish event", "type", e.Type, "tenant", e.TenantID)
	}
}

func (d *Deployer) loadAccount(ctx context.Context, tenantID string) (*store.Account, error) {
	account, err := d.tenants.GetAccount(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}
	return account, nil
}
