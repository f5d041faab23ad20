// Package events publishes deployment outcome events.
//
// Events are keyed by tenant so a tenant's events stay ordered within a
// partition. Publishing is best-effort: callers log failures and carry on.
package events
