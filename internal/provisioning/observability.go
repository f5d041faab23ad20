package provisioning

import (
	"github.com/go-logr/logr"
)

// EventType labels resource lifecycle log lines.
type EventType string

const (
	EventResourceCreated EventType = "resource.created"
	EventResourceExists  EventType = "resource.exists"
	EventResourceUpdated EventType = "resource.updated"
	EventResourceFailed  EventType = "resource.failed"
)

// LogResourceCreated logs a successful resource creation.
func LogResourceCreated(log logr.Logger, resourceType, name, id string) {
	log.Info(resourceType+" created", "event", EventResourceCreated, "type", resourceType, "name", name, "id", id)
}

// LogResourceExists logs when a resource already exists.
func LogResourceExists(log logr.Logger, resourceType, name, id string) {
	log.V(1).Info(resourceType+" already exists", "event", EventResourceExists, "type", resourceType, "name", name, "id", id)
}

// LogResourceUpdated logs an in-place update of an existing resource.
func LogResourceUpdated(log logr.Logger, resourceType, name, id string) {
	log.Info(resourceType+" updated", "event", EventResourceUpdated, "type", resourceType, "name", name, "id", id)
}

// LogResourceFailed logs a failure that does not abort the caller.
func LogResourceFailed(log logr.Logger, err error, resourceType, name string) {
	log.Error(err, resourceType+" failed", "event", EventResourceFailed, "type", resourceType, "name", name)
}
