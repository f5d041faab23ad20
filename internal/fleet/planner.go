package fleet

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/template"
)

// Deployer re-deploys one tenant.
type Deployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*deploy.Result, error)
}

// Templates resolves upgrade targets and historical versions.
type Templates interface {
	Resolve(ctx context.Context, name string) (*template.Template, template.Source, error)
	Snapshot(ctx context.Context, name, version string) (*template.Template, error)
	Persisted(ctx context.Context, name string) (*template.Template, error)
}

// Option configures a Planner.
type Option func(*Planner)

// WithConcurrency sets how many tenants are upgraded at once.
func WithConcurrency(n int) Option {
	return func(p *Planner) { p.concurrency = n }
}

// WithEvents publishes an event when a batch finishes.
func WithEvents(pub events.Publisher) Option {
	return func(p *Planner) { p.events = pub }
}

// Planner runs fleet upgrades.
type Planner struct {
	deployments store.DeploymentStore
	templates   Templates
	deployer    Deployer
	events      events.Publisher
	log         logr.Logger
	concurrency int
}

// NewPlanner creates a Planner.
func NewPlanner(deployments store.DeploymentStore, templates Templates, deployer Deployer, log logr.Logger, opts ...Option) *Planner {
	p := &Planner{
		deployments: deployments,
		templates:   templates,
		deployer:    deployer,
		events:      events.Nop{},
		log:         log.WithName("fleet"),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
