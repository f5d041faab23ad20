package provisioning

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/util/retry"
)

// ErrUnknownTool is returned when a template member references a tool that
// has neither a definition nor a binding.
var ErrUnknownTool = errors.New("unknown tool")

// ModelConfig selects the language model of every assistant.
type ModelConfig struct {
	Provider string
	Model    string
}

// TelephonyCredentials are passed to the platform when importing a number.
type TelephonyCredentials struct {
	Provider   string
	AccountSID string
	AuthToken  string
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithRetryOptions configures retries of platform calls.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(p *Provisioner) { p.retryOpts = opts }
}

// WithModel sets the assistants' language model.
func WithModel(m ModelConfig) Option {
	return func(p *Provisioner) { p.model = m }
}

// WithTelephonyCredentials sets the credentials used to import numbers.
func WithTelephonyCredentials(c TelephonyCredentials) Option {
	return func(p *Provisioner) { p.telephony = c }
}

// WithLinkConcurrency bounds parallel assistant updates.
func WithLinkConcurrency(n int) Option {
	return func(p *Provisioner) { p.linkConcurrency = n }
}

// Provisioner runs Ensure operations against a voice platform.
type Provisioner struct {
	voice           voice.Platform
	log             logr.Logger
	retryOpts       []retry.Option
	model           ModelConfig
	telephony       TelephonyCredentials
	linkConcurrency int
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(platform voice.Platform, log logr.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		voice:           platform,
		log:             log.WithName("provisioning"),
		model:           ModelConfig{Provider: "openai", Model: "gpt-4o"},
		telephony:       TelephonyCredentials{Provider: "twilio"},
		linkConcurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// call retries fn while the platform reports a transient failure.
func call[T any](ctx context.Context, p *Provisioner, fn func() (T, error)) (T, error) {
	return retry.Do(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !voice.IsTransient(err) {
			return v, retry.Fatal(err)
		}
		return v, err
	}, p.retryOpts...)
}

// FindCredential returns the id of the named credential, or "" when the
// platform has no credential by that name.
func (p *Provisioner) FindCredential(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	cred, err := call(ctx, p, func() (*voice.Credential, error) {
		return p.voice.FindCredentialByName(ctx, name)
	})
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", nil
	}
	return cred.ID, nil
}
