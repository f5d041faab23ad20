package phonepool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/squadfleet/internal/metrics"
	"github.com/imamik/squadfleet/internal/platform/telephony"
	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/util/retry"
)

// ErrNoPhoneNumberAvailable is returned when the inventory has no idle number
// and none can be purchased.
var ErrNoPhoneNumberAvailable = errors.New("no phone number available")

// leaseKey serializes every allocation: the inventory is account-wide, so
// allocations in different countries still compete for idle numbers.
const leaseKey = "phonepool"

// Source tells where an allocated number came from.
type Source string

const (
	SourceExisting  Source = "existing"
	SourceReserved  Source = "reserved"
	SourceInventory Source = "inventory"
	SourcePurchased Source = "purchased"
)

// AllocateRequest describes one allocation.
type AllocateRequest struct {
	TenantID     string
	ClinicNumber string

	// PreferredCountry overrides country detection from ClinicNumber.
	PreferredCountry string

	// Reallocate ignores the tenant's bound number and picks a new one.
	Reallocate bool

	// Exclude lists numbers that must not be returned.
	Exclude []string
}

// Allocation is the result of Allocate.
type Allocation struct {
	Number  string
	Source  Source
	Country string
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLocker replaces the process-local lease.
func WithLocker(l Locker) Option {
	return func(a *Allocator) { a.locker = l }
}

// WithCountryPolicy sets the NANP country split.
func WithCountryPolicy(p CountryPolicy) Option {
	return func(a *Allocator) { a.policy = p }
}

// WithNumberType sets the kind of number purchased.
func WithNumberType(t telephony.NumberType) Option {
	return func(a *Allocator) { a.numberType = t }
}

// WithSupportContact sets the contact named when no number is available.
func WithSupportContact(c string) Option {
	return func(a *Allocator) { a.supportContact = c }
}

// WithLeaseTTL bounds how long a crashed allocator can hold the lease.
func WithLeaseTTL(d time.Duration) Option {
	return func(a *Allocator) { a.leaseTTL = d }
}

// WithRetryOptions configures retries of telephony calls.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(a *Allocator) { a.retryOpts = opts }
}

// Allocator hands out phone numbers so that no number is bound to two tenants.
type Allocator struct {
	deployments store.DeploymentStore
	registry    store.PhoneRegistry
	telephony   telephony.Platform
	log         logr.Logger

	locker         Locker
	policy         CountryPolicy
	numberType     telephony.NumberType
	supportContact string
	leaseTTL       time.Duration
	retryOpts      []retry.Option
}

// NewAllocator creates an Allocator.
func NewAllocator(deployments store.DeploymentStore, registry store.PhoneRegistry, tel telephony.Platform, log logr.Logger, opts ...Option) *Allocator {
	a := &Allocator{
		deployments:    deployments,
		registry:       registry,
		telephony:      tel,
		log:            log.WithName("phonepool"),
		locker:         NewLocalLocker(),
		policy:         DefaultCountryPolicy,
		numberType:     telephony.NumberTypeLocal,
		supportContact: "support",
		leaseTTL:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a number for the tenant.
//
// A number already bound to the tenant is returned unchanged unless
// Reallocate is set. Otherwise, under the allocation lease, the first owned
// number not bound to any tenant is chosen, falling back to purchasing one
// in the preferred (or detected) country. The choice is reserved in the
// phone registry before the lease is released.
func (a *Allocator) Allocate(ctx context.Context, req AllocateRequest) (*Allocation, error) {
	if !req.Reallocate {
		rec, err := a.deployments.Get(ctx, req.TenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load deployment record: %w", err)
		}
		if rec != nil && rec.PhoneNumber != "" {
			return &Allocation{Number: rec.PhoneNumber, Source: SourceExisting}, nil
		}
	}

	lease, err := a.locker.Acquire(ctx, leaseKey, a.leaseTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			a.log.Error(err, "failed to release allocation lease", "tenant", req.TenantID)
		}
	}()

	records, err := a.deployments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	reservations, err := a.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list phone registry: %w", err)
	}
	assigned := ComputeAssigned(records, reservations)

	excluded := make(map[string]bool, len(req.Exclude))
	for _, n := range req.Exclude {
		excluded[n] = true
	}
	free := func(number string) bool {
		_, taken := assigned[number]
		return !taken && !excluded[number]
	}

	// A reservation left by an earlier attempt that never got persisted.
	for _, r := range reservations {
		if r.TenantID == req.TenantID && r.SquadID == "" && !excluded[r.PhoneNumber] && assigned[r.PhoneNumber] == req.TenantID {
			a.log.V(1).Info("reusing reservation", "tenant", req.TenantID, "number", r.PhoneNumber)
			return &Allocation{Number: r.PhoneNumber, Source: SourceReserved}, nil
		}
	}

	owned, err := retry.Do(ctx, func() ([]telephony.OwnedNumber, error) {
		n, err := a.telephony.ListOwnedNumbers(ctx)
		return n, classify(err)
	}, a.retryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned numbers: %w", err)
	}
	for _, n := range owned {
		if free(n.Number) {
			a.reserve(ctx, req.TenantID, n.Number)
			a.log.Info("allocated number from inventory", "tenant", req.TenantID, "number", n.Number)
			return &Allocation{Number: n.Number, Source: SourceInventory}, nil
		}
	}

	country := req.PreferredCountry
	if country == "" {
		country = a.policy.DetectCountry(req.ClinicNumber)
	}
	if country == "" {
		country = a.policy.Primary
	}

	number, err := a.purchase(ctx, country, free)
	if err != nil {
		return nil, err
	}
	a.reserve(ctx, req.TenantID, number)
	a.log.Info("purchased number", "tenant", req.TenantID, "number", number, "country", country)
	return &Allocation{Number: number, Source: SourcePurchased, Country: country}, nil
}

func (a *Allocator) purchase(ctx context.Context, country string, free func(string) bool) (string, error) {
	available, err := retry.Do(ctx, func() ([]telephony.AvailableNumber, error) {
		n, err := a.telephony.SearchAvailableNumbers(ctx, country, a.numberType, telephony.Capabilities{Voice: true})
		return n, classify(err)
	}, a.retryOpts...)
	if err != nil {
		return "", a.unavailable(country, err)
	}

	var candidate string
	for _, n := range available {
		if free(n.Number) {
			candidate = n.Number
			break
		}
	}
	if candidate == "" {
		return "", a.unavailable(country, nil)
	}

	// A purchase that timed out may still have gone through, so retries look
	// for the candidate in the owned inventory before buying again.
	attempted := false
	bought, err := retry.Do(ctx, func() (string, error) {
		if attempted {
			owned, err := a.telephony.ListOwnedNumbers(ctx)
			if err != nil {
				return "", classify(err)
			}
			for _, n := range owned {
				if n.Number == candidate {
					return candidate, nil
				}
			}
		}
		attempted = true
		n, err := a.telephony.PurchaseNumber(ctx, candidate)
		if err != nil {
			return "", classify(err)
		}
		return n.Number, nil
	}, a.retryOpts...)
	if err != nil {
		return "", a.unavailable(country, err)
	}
	metrics.RecordPhonePurchase(country)
	return bought, nil
}

// reserve records the pick so the next allocation's assigned set contains
// it. A failed reservation is logged; the deployment store still refuses to
// bind one number to two active tenants.
func (a *Allocator) reserve(ctx context.Context, tenantID, number string) {
	err := a.registry.Upsert(ctx, store.RegistryRecord{PhoneNumber: number, TenantID: tenantID})
	if err != nil {
		a.log.Error(err, "failed to reserve number", "tenant", tenantID, "number", number)
	}
}

func (a *Allocator) unavailable(country string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w in %s (%v); contact %s to add a number", ErrNoPhoneNumberAvailable, country, cause, a.supportContact)
	}
	return fmt.Errorf("%w in %s; contact %s to add a number", ErrNoPhoneNumberAvailable, country, a.supportContact)
}

func classify(err error) error {
	if err == nil || telephony.IsTransient(err) {
		return err
	}
	return retry.Fatal(err)
}
