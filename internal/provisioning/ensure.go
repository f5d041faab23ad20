package provisioning

import (
	"context"
	"fmt"
)

// ensureOperation encapsulates find-or-create logic for a keyed resource.
//
// Usage example:
//
//	id, err := (&ensureOperation[*voice.Tool]{
//	    Key:          key,
//	    ResourceType: "tool",
//	    Find:         func(ctx context.Context) (*voice.Tool, error) { return existing[key], nil },
//	    Create:       func(ctx context.Context) (*voice.Tool, error) { return p.voice.CreateTool(ctx, tool) },
//	    ID:           func(t *voice.Tool) string { return t.ID },
//	}).execute(ctx, p)
type ensureOperation[T comparable] struct {
	Key          string
	ResourceType string

	// Find returns the existing resource or the zero value.
	Find func(ctx context.Context) (T, error)

	// Create creates the resource.
	Create func(ctx context.Context) (T, error)

	// ID extracts the external id.
	ID func(T) string
}

func (op *ensureOperation[T]) execute(ctx context.Context, p *Provisioner) (string, error) {
	var zero T

	existing, err := op.Find(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s %s: %w", op.ResourceType, op.Key, err)
	}
	if existing != zero {
		id := op.ID(existing)
		LogResourceExists(p.log, op.ResourceType, op.Key, id)
		return id, nil
	}

	created, err := call(ctx, p, func() (T, error) { return op.Create(ctx) })
	if err != nil {
		return "", fmt.Errorf("failed to create %s %s: %w", op.ResourceType, op.Key, err)
	}
	id := op.ID(created)
	LogResourceCreated(p.log, op.ResourceType, op.Key, id)
	return id, nil
}
