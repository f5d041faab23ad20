package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	DeploymentCompleted Type = "deployment.completed"
	DeploymentFailed    Type = "deployment.failed"
	PhoneChanged        Type = "phone.changed"
	UpgradeCompleted    Type = "upgrade.completed"
)

// Event is one outcome notification.
type Event struct {
	ID       string         `json:"id"`
	Type     Type           `json:"type"`
	TenantID string         `json:"tenantId,omitempty"`
	Time     time.Time      `json:"time"`
	Data     map[string]any `json:"data,omitempty"`
}

// New creates an event with a fresh id.
func New(typ Type, tenantID string, data map[string]any) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     typ,
		TenantID: tenantID,
		Time:     time.Now().UTC(),
		Data:     data,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
func (Nop) Close() error                            { return nil }
