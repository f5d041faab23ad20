// Package store defines the records the deployment core reads and writes and
// the interfaces of the stores that hold them.
//
// Implementations live in store/postgres (production) and store/memory
// (tests and local runs). Lookups of a single record return (nil, nil) when
// the record does not exist.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/imamik/squadfleet/internal/template"
)

// Account is a tenant (clinic) account as seen by the deployment core.
type Account struct {
	TenantID          string
	DisplayName       string
	ClinicPhoneNumber string
	HasPaymentMethod  bool
	TemplateName      string
	TemplateVersion   string
	Active            bool
}

// DeploymentRecord maps a tenant to its live external resources.
type DeploymentRecord struct {
	TenantID        string            `json:"tenantId"`
	TemplateID      string            `json:"templateId"`
	TemplateVersion string            `json:"templateVersion"`
	SquadID         string            `json:"squadId"`
	PreviousSquadID string            `json:"previousSquadId,omitempty"`
	PhoneID         string            `json:"phoneId"`
	PhoneNumber     string            `json:"phoneNumber"`
	ToolBindings    map[string]string `json:"toolBindings"`

	KnowledgeQueryToolID string   `json:"knowledgeQueryToolId,omitempty"`
	KnowledgeFileIDs     []string `json:"knowledgeFileIds,omitempty"`
	KnowledgeLabel       string   `json:"knowledgeLabel,omitempty"`
	StructuredOutputID   string   `json:"structuredOutputId,omitempty"`

	Voice            template.Voice `json:"voiceConfig"`
	PhoneChangeCount int            `json:"phoneChangeCount"`
	Active           bool           `json:"active"`
	DeployedAt       time.Time      `json:"deployedAt"`
}

// Clone returns a copy that shares no maps or slices with r.
func (r *DeploymentRecord) Clone() *DeploymentRecord {
	c := *r
	if r.ToolBindings != nil {
		c.ToolBindings = make(map[string]string, len(r.ToolBindings))
		for k, v := range r.ToolBindings {
			c.ToolBindings[k] = v
		}
	}
	if r.KnowledgeFileIDs != nil {
		c.KnowledgeFileIDs = append([]string(nil), r.KnowledgeFileIDs...)
	}
	return &c
}

// RegistryRecord binds a phone number to a tenant and squad for call-log
// correlation. A record without a squad is an allocation reservation.
type RegistryRecord struct {
	PhoneNumber string
	PhoneID     string
	SquadID     string
	TenantID    string
	UpdatedAt   time.Time
}

// TenantStore reads and updates tenant accounts.
type TenantStore interface {
	GetAccount(ctx context.Context, tenantID string) (*Account, error)
	LinkTemplate(ctx context.Context, tenantID, templateName, version string) error
}

// ErrPhoneNumberInUse is returned by DeploymentStore.Save when another active
// tenant already holds the record's phone number.
var ErrPhoneNumberInUse = errors.New("phone number is bound to another active tenant")

// DeploymentStore holds one DeploymentRecord per tenant.
type DeploymentStore interface {
	Get(ctx context.Context, tenantID string) (*DeploymentRecord, error)
	Save(ctx context.Context, rec *DeploymentRecord) error
	ListActive(ctx context.Context) ([]DeploymentRecord, error)
}

// PhoneRegistry records phone → tenant → squad bindings.
type PhoneRegistry interface {
	List(ctx context.Context) ([]RegistryRecord, error)
	Upsert(ctx context.Context, rec RegistryRecord) error
	Release(ctx context.Context, phoneNumber string) error
}
