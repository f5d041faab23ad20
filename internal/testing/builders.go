package testing

import (
	"maps"
	"time"

	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/template"
)

// AccountBuilder provides a fluent interface for constructing tenant accounts.
// Each method returns a new builder (immutable) for chaining.
type AccountBuilder struct {
	acc store.Account
}

// NewAccountBuilder creates an active account with a payment method on file.
func NewAccountBuilder(tenantID string) *AccountBuilder {
	return &AccountBuilder{
		acc: store.Account{
			TenantID:          tenantID,
			DisplayName:       "Clinic " + tenantID,
			ClinicPhoneNumber: "+12125550000",
			HasPaymentMethod:  true,
			Active:            true,
		},
	}
}

// WithDisplayName sets the clinic's display name.
func (b *AccountBuilder) WithDisplayName(name string) *AccountBuilder {
	c := *b
	c.acc.DisplayName = name
	return &c
}

// WithClinicNumber sets the clinic's own phone number.
func (b *AccountBuilder) WithClinicNumber(number string) *AccountBuilder {
	c := *b
	c.acc.ClinicPhoneNumber = number
	return &c
}

// WithoutPaymentMethod clears the payment method flag.
func (b *AccountBuilder) WithoutPaymentMethod() *AccountBuilder {
	c := *b
	c.acc.HasPaymentMethod = false
	return &c
}

// WithTemplate links a template version.
func (b *AccountBuilder) WithTemplate(name, version string) *AccountBuilder {
	c := *b
	c.acc.TemplateName = name
	c.acc.TemplateVersion = version
	return &c
}

// Build returns the account.
func (b *AccountBuilder) Build() store.Account {
	return b.acc
}

// RecordBuilder provides a fluent interface for constructing deployment records.
type RecordBuilder struct {
	rec store.DeploymentRecord
}

// NewRecordBuilder creates an active record for tenantID.
func NewRecordBuilder(tenantID string) *RecordBuilder {
	return &RecordBuilder{
		rec: store.DeploymentRecord{
			TenantID:        tenantID,
			TemplateID:      "clinic-receptionist",
			TemplateVersion: "1.0.0",
			SquadID:         "squad_" + tenantID,
			ToolBindings:    map[string]string{},
			Voice:           template.Voice{Provider: "11labs", VoiceID: "rachel"},
			Active:          true,
			DeployedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (b *RecordBuilder) clone() *RecordBuilder {
	c := *b
	c.rec.ToolBindings = maps.Clone(b.rec.ToolBindings)
	return &c
}

// WithPhone binds a phone number.
func (b *RecordBuilder) WithPhone(id, number string) *RecordBuilder {
	c := b.clone()
	c.rec.PhoneID = id
	c.rec.PhoneNumber = number
	return c
}

// WithTemplate sets the deployed template version.
func (b *RecordBuilder) WithTemplate(name, version string) *RecordBuilder {
	c := b.clone()
	c.rec.TemplateID = name
	c.rec.TemplateVersion = version
	return c
}

// WithSquad sets the squad id.
func (b *RecordBuilder) WithSquad(id string) *RecordBuilder {
	c := b.clone()
	c.rec.SquadID = id
	return c
}

// WithPhoneChanges sets the lifetime phone change count.
func (b *RecordBuilder) WithPhoneChanges(n int) *RecordBuilder {
	c := b.clone()
	c.rec.PhoneChangeCount = n
	return c
}

// Inactive marks the record inactive.
func (b *RecordBuilder) Inactive() *RecordBuilder {
	c := b.clone()
	c.rec.Active = false
	return c
}

// Build returns the record.
func (b *RecordBuilder) Build() store.DeploymentRecord {
	return *b.rec.Clone()
}
