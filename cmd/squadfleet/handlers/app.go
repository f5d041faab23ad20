// Package handlers implements the business logic for CLI commands.
//
// Handlers load configuration, wire the stores and platform clients and
// call into the deployment core. Command parsing lives in the commands
// package.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/imamik/squadfleet/internal/config"
	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/logging"
	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/platform/events"
	pgpool "github.com/imamik/squadfleet/internal/platform/postgres"
	"github.com/imamik/squadfleet/internal/platform/s3"
	"github.com/imamik/squadfleet/internal/platform/telephony"
	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/provisioning"
	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/store/memory"
	pgstore "github.com/imamik/squadfleet/internal/store/postgres"
	"github.com/imamik/squadfleet/internal/template"
)

// App is the wired deployment core.
type App struct {
	Config    *config.Config
	Log       logr.Logger
	Templates *template.Store
	Deployer  *deploy.Deployer
	Planner   *fleet.Planner

	// Archive is nil when no bucket is configured.
	Archive *s3.Archive

	closers []func() error
}

// Close waits for background template syncs and releases connections.
func (a *App) Close() error {
	if a.Templates != nil {
		a.Templates.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newApp builds the App for a config file. Replaced in tests.
var newApp = buildApp

type stores struct {
	tenants     store.TenantStore
	deployments store.DeploymentStore
	registry    store.PhoneRegistry
	templates   template.Repository
}

func buildApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	timeouts := config.LoadTimeouts()
	app := &App{Config: cfg, Log: log}

	st, err := app.openStores(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	storeOpts := []template.StoreOption{template.WithSyncTimeout(timeouts.TemplateSync)}
	if cfg.Archive.Bucket != "" {
		client, err := s3.NewClient(ctx, cfg.Archive.Bucket, s3.Options{
			Endpoint:     cfg.Archive.Endpoint,
			Region:       cfg.Archive.Region,
			AccessKey:    cfg.Archive.AccessKey,
			SecretKey:    cfg.Archive.SecretKey,
			UsePathStyle: cfg.Archive.PathStyle,
		})
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			log.Error(err, "template archive bucket is not available", "bucket", cfg.Archive.Bucket)
		}
		app.Archive = s3.NewArchive(client)
		storeOpts = append(storeOpts, template.WithArchive(app.Archive))
	}
	app.Templates = template.NewStore(st.templates, log, storeOpts...)

	var locker phonepool.Locker = phonepool.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, rdb.Close)
		locker = phonepool.NewRedisLocker(rdb, "squadfleet:lease:")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Events.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		app.closers = append(app.closers, kp.Close)
		publisher = kp
	}

	voiceOpts := []voice.Option{voice.WithTimeout(timeouts.Request)}
	if cfg.Voice.BaseURL != "" {
		voiceOpts = append(voiceOpts, voice.WithBaseURL(cfg.Voice.BaseURL))
	}
	voiceClient := voice.NewClient(cfg.Voice.APIKey, voiceOpts...)
	tel := telephony.NewTwilioClient(cfg.Telephony.AccountSID, cfg.Telephony.AuthToken, cfg.Telephony.FriendlyName)

	retryOpts := timeouts.RetryOptions()
	allocator := phonepool.NewAllocator(st.deployments, st.registry, tel, log,
		phonepool.WithLocker(locker),
		phonepool.WithCountryPolicy(phonepool.CountryPolicy{
			Primary:   cfg.Phones.PrimaryCountry,
			Secondary: cfg.Phones.SecondaryCountry,
		}),
		phonepool.WithNumberType(telephony.NumberType(cfg.Phones.NumberType)),
		phonepool.WithSupportContact(cfg.Phones.SupportContact),
		phonepool.WithLeaseTTL(cfg.Phones.LeaseTTL),
		phonepool.WithRetryOptions(retryOpts...),
	)
	provisioner := provisioning.NewProvisioner(voiceClient, log,
		provisioning.WithRetryOptions(retryOpts...),
		provisioning.WithTelephonyCredentials(provisioning.TelephonyCredentials{
			Provider:   "twilio",
			AccountSID: cfg.Telephony.AccountSID,
			AuthToken:  cfg.Telephony.AuthToken,
		}),
	)

	app.Deployer = deploy.New(deploy.Dependencies{
		Tenants:     st.tenants,
		Deployments: st.deployments,
		Registry:    st.registry,
		Templates:   app.Templates,
		Allocator:   allocator,
		Provisioner: provisioner,
		Events:      publisher,
	}, log,
		deploy.WithChangeQuota(cfg.Phones.ChangeQuota),
		deploy.WithDefaultTemplate(cfg.Template.Name),
		deploy.WithLocker(locker),
	)
	app.Planner = fleet.NewPlanner(st.deployments, app.Templates, app.Deployer, log,
		fleet.WithConcurrency(cfg.Fleet.Concurrency),
		fleet.WithEvents(publisher),
	)
	return app, nil
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	if a.Config.Memory {
		a.Log.Info("using in-memory stores; nothing is persisted")
		return &stores{
			tenants:     memory.NewTenants(),
			deployments: memory.NewDeployments(),
			registry:    memory.NewRegistry(),
			templates:   memory.NewTemplates(),
		}, nil
	}

	pool, err := pgpool.NewPool(ctx, a.Config.Database.DSN, a.Config.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	if err := pgstore.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &stores{
		tenants:     pgstore.NewTenants(pool),
		deployments: pgstore.NewDeployments(pool),
		registry:    pgstore.NewRegistry(pool),
		templates:   pgstore.NewTemplates(pool),
	}, nil
}
