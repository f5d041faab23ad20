package provisioning

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/template"
	"github.com/imamik/squadfleet/internal/util/async"
	"github.com/imamik/squadfleet/internal/util/naming"
)

// KnowledgeTool identifies a tenant's knowledge-query tool.
type KnowledgeTool struct {
	ID   string
	Name string
}

// ToolDefinitions returns the definitions of every tool t's members reference.
func ToolDefinitions(t *template.Template) ([]template.ToolDefinition, error) {
	refs := t.ReferencedTools()
	defs := make([]template.ToolDefinition, 0, len(refs))
	for _, ref := range refs {
		def, ok := t.Tool(ref)
		if !ok {
			return nil, fmt.Errorf("%w %q in template %s", ErrUnknownTool, ref, t.Name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// EnsureTools returns the platform id of every definition, keyed by logical
// name. Missing tools are created in parallel. A tool naming a credential
// gets that credential attached when the platform has it.
func (p *Provisioner) EnsureTools(ctx context.Context, defs []template.ToolDefinition, version string) (map[string]string, error) {
	existing, err := p.toolsByName(ctx)
	if err != nil {
		return nil, err
	}

	credentials, err := p.resolveCredentials(ctx, defs)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	bindings := make(map[string]string, len(defs))
	tasks := make([]async.Task, 0, len(defs))
	for _, def := range defs {
		key := naming.Tool(def.Name, version, def.Fingerprint())
		op := &ensureOperation[*voice.Tool]{
			Key:          key,
			ResourceType: "tool",
			Find: func(context.Context) (*voice.Tool, error) {
				return existing[key], nil
			},
			Create: func(ctx context.Context) (*voice.Tool, error) {
				return p.voice.CreateTool(ctx, functionTool(key, def, credentials[def.CredentialName]))
			},
			ID: func(t *voice.Tool) string { return t.ID },
		}
		tasks = append(tasks, async.Task{
			Name: "tool " + def.Name,
			Func: func(ctx context.Context) error {
				id, err := op.execute(ctx, p)
				if err != nil {
					return err
				}
				mu.Lock()
				bindings[def.Name] = id
				mu.Unlock()
				return nil
			},
		})
	}

	if err := async.RunParallel(ctx, tasks); err != nil {
		return nil, err
	}
	return bindings, nil
}

// EnsureKnowledgeQueryTool returns the tenant's query tool over fileIDs, or
// nil when there are no files.
func (p *Provisioner) EnsureKnowledgeQueryTool(ctx context.Context, tenantID string, fileIDs []string, version, label string) (*KnowledgeTool, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	files := slices.Clone(fileIDs)
	slices.Sort(files)
	files = slices.Compact(files)

	existing, err := p.toolsByName(ctx)
	if err != nil {
		return nil, err
	}

	key := naming.KnowledgeTool(tenantID, version, files)
	if label == "" {
		label = "clinic knowledge"
	}
	id, err := (&ensureOperation[*voice.Tool]{
		Key:          key,
		ResourceType: "knowledge tool",
		Find: func(context.Context) (*voice.Tool, error) {
			return existing[key], nil
		},
		Create: func(ctx context.Context) (*voice.Tool, error) {
			return p.voice.CreateTool(ctx, voice.Tool{
				Type: voice.ToolTypeQuery,
				Function: &voice.Function{
					Name:        key,
					Description: "Answer caller questions from " + label,
				},
				KnowledgeBases: []voice.KnowledgeBase{{
					Name:        label,
					Provider:    "google",
					Description: "Documents uploaded by the clinic: " + label,
					FileIDs:     files,
				}},
			})
		},
		ID: func(t *voice.Tool) string { return t.ID },
	}).execute(ctx, p)
	if err != nil {
		return nil, err
	}
	return &KnowledgeTool{ID: id, Name: key}, nil
}

func (p *Provisioner) toolsByName(ctx context.Context) (map[string]*voice.Tool, error) {
	tools, err := call(ctx, p, func() ([]voice.Tool, error) {
		return p.voice.ListTools(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	byName := make(map[string]*voice.Tool, len(tools))
	for i := range tools {
		if name := tools[i].Name(); name != "" {
			byName[name] = &tools[i]
		}
	}
	return byName, nil
}

func (p *Provisioner) resolveCredentials(ctx context.Context, defs []template.ToolDefinition) (map[string]string, error) {
	ids := make(map[string]string)
	for _, def := range defs {
		name := def.CredentialName
		if name == "" {
			continue
		}
		if _, done := ids[name]; done {
			continue
		}
		id, err := p.FindCredential(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up credential %s: %w", name, err)
		}
		if id == "" {
			p.log.Info("credential not found, tools will be created without it", "credential", name)
		}
		ids[name] = id
	}
	return ids, nil
}

func functionTool(key string, def template.ToolDefinition, credentialID string) voice.Tool {
	tool := voice.Tool{
		Type: voice.ToolTypeFunction,
		Function: &voice.Function{
			Name:        key,
			Description: def.Description,
			Parameters:  def.Parameters,
		},
	}
	if def.ServerURL != "" {
		tool.Server = &voice.Server{URL: def.ServerURL, CredentialID: credentialID}
	}
	return tool
}
