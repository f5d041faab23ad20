package provisioning

import (
	"context"
	"fmt"

	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/template"
	"github.com/imamik/squadfleet/internal/util/naming"
)

// SquadRequest describes the squad a tenant should have.
type SquadRequest struct {
	TenantID string

	// ExistingSquadID is the squad the tenant's record points at, if any.
	ExistingSquadID string

	// Template is the personalized template.
	Template *template.Template

	// ToolBindings maps logical tool names to platform ids.
	ToolBindings map[string]string

	// KnowledgeToolID is bound to the knowledge tool reference; members
	// referencing it get no knowledge tool when empty.
	KnowledgeToolID string
}

// SquadResult is the outcome of EnsureSquad.
type SquadResult struct {
	Squad   *voice.Squad
	Created bool

	// PreviousSquadID is set when the recorded squad no longer existed and
	// a replacement was created. The old squad is never deleted.
	PreviousSquadID string
}

// AssistantIDs returns the platform ids of the squad's assistants.
func (r *SquadResult) AssistantIDs() []string {
	ids := make([]string, 0, len(r.Squad.Members))
	for _, m := range r.Squad.Members {
		if m.AssistantID != "" {
			ids = append(ids, m.AssistantID)
		}
	}
	return ids
}

// EnsureSquad updates the tenant's squad in place when it exists and
// creates it otherwise.
func (p *Provisioner) EnsureSquad(ctx context.Context, req SquadRequest) (*SquadResult, error) {
	desired, err := p.BuildSquad(req)
	if err != nil {
		return nil, err
	}

	if req.ExistingSquadID != "" {
		current, err := call(ctx, p, func() (*voice.Squad, error) {
			return p.voice.GetSquad(ctx, req.ExistingSquadID)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get squad %s: %w", req.ExistingSquadID, err)
		}
		if current != nil {
			updated, err := call(ctx, p, func() (*voice.Squad, error) {
				return p.voice.UpdateSquad(ctx, req.ExistingSquadID, desired)
			})
			if err != nil {
				return nil, fmt.Errorf("failed to update squad %s: %w", req.ExistingSquadID, err)
			}
			LogResourceUpdated(p.log, "squad", desired.Name, updated.ID)
			return &SquadResult{Squad: updated}, nil
		}
		p.log.Info("recorded squad no longer exists, creating a replacement",
			"tenant", req.TenantID, "squad", req.ExistingSquadID)
	}

	created, err := call(ctx, p, func() (*voice.Squad, error) {
		return p.voice.CreateSquad(ctx, desired)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create squad: %w", err)
	}
	LogResourceCreated(p.log, "squad", desired.Name, created.ID)
	return &SquadResult{Squad: created, Created: true, PreviousSquadID: req.ExistingSquadID}, nil
}

// BuildSquad renders the platform squad for req without calling the platform.
func (p *Provisioner) BuildSquad(req SquadRequest) (voice.Squad, error) {
	if req.Template == nil {
		return voice.Squad{}, fmt.Errorf("squad for %s has no template", req.TenantID)
	}
	squad := voice.Squad{
		Name:    naming.Squad(req.TenantID),
		Members: make([]voice.SquadMember, 0, len(req.Template.Members)),
	}
	for _, m := range req.Template.Members {
		toolIDs, err := p.memberTools(m, req)
		if err != nil {
			return voice.Squad{}, err
		}

		assistant := &voice.Assistant{
			Name:         m.Name,
			FirstMessage: m.FirstMessage,
			Model: voice.Model{
				Provider: p.model.Provider,
				Model:    p.model.Model,
				Messages: []voice.Message{{Role: "system", Content: m.SystemPrompt}},
				ToolIDs:  toolIDs,
			},
		}
		if m.Voice != nil {
			assistant.Voice = &voice.Voice{Provider: m.Voice.Provider, VoiceID: m.Voice.VoiceID}
		}

		member := voice.SquadMember{Assistant: assistant}
		for _, d := range m.Destinations {
			member.Destinations = append(member.Destinations, voice.Destination{
				Type:          "assistant",
				AssistantName: d.Member,
				Description:   d.Description,
			})
		}
		squad.Members = append(squad.Members, member)
	}
	return squad, nil
}

func (p *Provisioner) memberTools(m template.Member, req SquadRequest) ([]string, error) {
	var ids []string
	for _, ref := range m.ToolRefs {
		if ref == template.KnowledgeToolRef {
			if req.KnowledgeToolID != "" {
				ids = append(ids, req.KnowledgeToolID)
			}
			continue
		}
		id, ok := req.ToolBindings[ref]
		if !ok {
			return nil, fmt.Errorf("%w %q referenced by member %q", ErrUnknownTool, ref, m.Name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
