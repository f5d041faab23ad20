package deploy

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/imamik/squadfleet/internal/metrics"
	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/platform/events"
	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/provisioning"
	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/template"
)

// knowledgeToolVersion versions the shape of knowledge-query tools. It is
// independent of template versions, so a template upgrade keeps the tool.
const knowledgeToolVersion = "1"

// Knowledge selects the files a tenant's knowledge tool searches.
type Knowledge struct {
	FileIDs []string `json:"fileIds"`
	Label   string   `json:"label,omitempty"`
}

// Request describes a deployment.
type Request struct {
	TenantID string

	// Voice is applied to every member. A zero Voice keeps the deployed
	// voice, or uses the default on a first deployment.
	Voice template.Voice

	// Knowledge replaces the deployed knowledge files. Nil keeps them.
	Knowledge *Knowledge

	// TemplateName overrides the account's linked template.
	TemplateName string

	// Template pins the exact template to deploy, bypassing resolution.
	Template *template.Template

	// PreferredCountry overrides country detection for a new number.
	PreferredCountry string
}

// Result is the outcome of a successful deployment.
type Result struct {
	Record *store.DeploymentRecord `json:"record"`

	// TemplateSource is empty when the request pinned the template.
	TemplateSource   template.Source         `json:"templateSource,omitempty"`
	NumberSource     phonepool.Source        `json:"numberSource"`
	SquadCreated     bool                    `json:"squadCreated"`
	AdvisoryFailures []StepFailure           `json:"advisoryFailures,omitempty"`
}

// deployment carries state between the steps of one Deploy call.
type deployment struct {
	req      Request
	account  *store.Account
	existing *store.DeploymentRecord

	allocation *phonepool.Allocation
	knowledge  *provisioning.KnowledgeTool
	files      []string
	label      string
	tmpl       *template.Template
	source     template.Source
	voice      template.Voice
	tools      map[string]string
	squad      *provisioning.SquadResult
	phone      *voice.PhoneNumber
	record     *store.DeploymentRecord
}

// Deploy provisions or updates the tenant's squad and phone number.
// Re-deploying an unchanged tenant reuses every external resource.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	var result *Result
	err := d.withTenantLease(ctx, req.TenantID, func() error {
		var err error
		result, err = d.deploy(ctx, req)
		return err
	})
	metrics.RecordDeploy(err)
	if err != nil {
		d.publish(ctx, events.New(events.DeploymentFailed, req.TenantID, map[string]any{
			"step":  FailedStep(err),
			"error": err.Error(),
		}))
		return nil, err
	}
	d.publish(ctx, events.New(events.DeploymentCompleted, req.TenantID, map[string]any{
		"squadId":         result.Record.SquadID,
		"phoneNumber":     result.Record.PhoneNumber,
		"templateVersion": result.Record.TemplateVersion,
	}))
	return result, nil
}

func (d *Deployer) deploy(ctx context.Context, req Request) (*Result, error) {
	log := d.log.WithValues("tenant", req.TenantID)
	s := &deployment{req: req}

	steps := []Step{
		{Name: "load-account", Class: Fatal, Run: func(ctx context.Context) error { return d.stepLoadAccount(ctx, s) }},
		{Name: "allocate-number", Class: Fatal, Run: func(ctx context.Context) error { return d.stepAllocateNumber(ctx, s) }},
		{Name: "knowledge-tool", Class: Advisory, Run: func(ctx context.Context) error { return d.stepKnowledgeTool(ctx, s) }},
		{Name: "resolve-template", Class: Fatal, Run: func(ctx context.Context) error { return d.stepResolveTemplate(ctx, s) }},
		{Name: "personalize", Class: Fatal, Run: func(context.Context) error { return d.stepPersonalize(s) }},
		{Name: "ensure-tools", Class: Fatal, Run: func(ctx context.Context) error { return d.stepEnsureTools(ctx, s) }},
		{Name: "ensure-squad", Class: Fatal, Run: func(ctx context.Context) error { return d.stepEnsureSquad(ctx, s) }},
		{Name: "link-phone", Class: Fatal, Run: func(ctx context.Context) error { return d.stepLinkPhone(ctx, s) }},
		{Name: "persist", Class: Fatal, Run: func(ctx context.Context) error { return d.stepPersist(ctx, s) }},
		{Name: "link-template", Class: Advisory, Run: func(ctx context.Context) error { return d.stepLinkTemplate(ctx, s) }},
		{Name: "call-analysis", Class: Advisory, Run: func(ctx context.Context) error { return d.stepCallAnalysis(ctx, s) }},
		{Name: "phone-registry", Class: Advisory, Run: func(ctx context.Context) error { return d.stepPhoneRegistry(ctx, s) }},
	}

	failures, err := RunSteps(ctx, log, steps)
	if err != nil {
		return nil, err
	}

	log.Info("deployment completed",
		"squad", s.record.SquadID,
		"phone", s.record.PhoneNumber,
		"template", s.record.TemplateID,
		"version", s.record.TemplateVersion,
		"advisoryFailures", len(failures))

	return &Result{
		Record:           s.record.Clone(),
		TemplateSource:   s.source,
		NumberSource:     s.allocation.Source,
		SquadCreated:     s.squad.Created,
		AdvisoryFailures: failures,
	}, nil
}

func (d *Deployer) stepLoadAccount(ctx context.Context, s *deployment) error {
	account, err := d.loadAccount(ctx, s.req.TenantID)
	if err != nil {
		return err
	}
	if !account.HasPaymentMethod {
		return ErrPaymentMethodRequired
	}
	s.account = account

	existing, err := d.deployments.Get(ctx, s.req.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load deployment record: %w", err)
	}
	s.existing = existing
	return nil
}

func (d *Deployer) stepAllocateNumber(ctx context.Context, s *deployment) error {
	alloc, err := d.allocator.Allocate(ctx, phonepool.AllocateRequest{
		TenantID:         s.req.TenantID,
		ClinicNumber:     s.account.ClinicPhoneNumber,
		PreferredCountry: s.req.PreferredCountry,
	})
	if err != nil {
		return err
	}
	s.allocation = alloc
	return nil
}

func (d *Deployer) stepKnowledgeTool(ctx context.Context, s *deployment) error {
	switch {
	case s.req.Knowledge != nil:
		s.files = slices.Clone(s.req.Knowledge.FileIDs)
		s.label = s.req.Knowledge.Label
	case s.existing != nil:
		s.files = slices.Clone(s.existing.KnowledgeFileIDs)
		s.label = s.existing.KnowledgeLabel
	}

	kt, err := d.provisioner.EnsureKnowledgeQueryTool(ctx, s.req.TenantID, s.files, knowledgeToolVersion, s.label)
	if err != nil {
		return err
	}
	s.knowledge = kt
	return nil
}

// knowledgeToolID is the tool ensured by this deployment. When the knowledge
// step failed for unchanged files, the deployed tool stays bound; the files
// are persisted either way so a later deploy can rebuild the tool.
func (s *deployment) knowledgeToolID() string {
	if s.knowledge != nil {
		return s.knowledge.ID
	}
	if len(s.files) > 0 && s.existing != nil && slices.Equal(s.files, s.existing.KnowledgeFileIDs) {
		return s.existing.KnowledgeQueryToolID
	}
	return ""
}

func (d *Deployer) stepResolveTemplate(ctx context.Context, s *deployment) error {
	if s.req.Template != nil {
		if err := s.req.Template.Validate(); err != nil {
			return err
		}
		s.tmpl = s.req.Template.Clone()
		return nil
	}

	name := s.req.TemplateName
	if name == "" {
		name = s.account.TemplateName
	}
	if name == "" {
		name = d.defaultTemplate
	}
	tmpl, source, err := d.templates.Resolve(ctx, name)
	if err != nil {
		return err
	}
	s.tmpl = tmpl
	s.source = source
	return nil
}

func (d *Deployer) stepPersonalize(s *deployment) error {
	s.voice = s.req.Voice
	if s.voice == (template.Voice{}) && s.existing != nil {
		s.voice = s.existing.Voice
	}
	if s.voice == (template.Voice{}) {
		s.voice = d.defaultVoice
	}
	s.tmpl = template.Personalize(s.tmpl, s.voice, s.account.DisplayName)
	return nil
}

func (d *Deployer) stepEnsureTools(ctx context.Context, s *deployment) error {
	defs, err := provisioning.ToolDefinitions(s.tmpl)
	if err != nil {
		return err
	}
	tools, err := d.provisioner.EnsureTools(ctx, defs, s.tmpl.Version)
	if err != nil {
		return err
	}
	s.tools = tools
	return nil
}

func (d *Deployer) stepEnsureSquad(ctx context.Context, s *deployment) error {
	req := provisioning.SquadRequest{
		TenantID:     s.req.TenantID,
		Template:     s.tmpl,
		ToolBindings: s.tools,
	}
	if s.existing != nil {
		req.ExistingSquadID = s.existing.SquadID
	}
	req.KnowledgeToolID = s.knowledgeToolID()
	squad, err := d.provisioner.EnsureSquad(ctx, req)
	if err != nil {
		return err
	}
	s.squad = squad
	return nil
}

func (d *Deployer) stepLinkPhone(ctx context.Context, s *deployment) error {
	phone, err := d.provisioner.EnsurePhoneNumber(ctx, s.req.TenantID, s.allocation.Number, s.squad.Squad.ID)
	if err != nil {
		return err
	}
	s.phone = phone
	return nil
}

func (d *Deployer) stepPersist(ctx context.Context, s *deployment) error {
	rec := &store.DeploymentRecord{
		TenantID:        s.req.TenantID,
		TemplateID:      s.tmpl.Name,
		TemplateVersion: s.tmpl.Version,
		SquadID:         s.squad.Squad.ID,
		PreviousSquadID: s.squad.PreviousSquadID,
		PhoneID:         s.phone.ID,
		PhoneNumber:     s.phone.Number,
		ToolBindings:    maps.Clone(s.tools),
		Voice:           s.voice,
		Active:          true,
		DeployedAt:      d.now().UTC(),
	}
	if len(s.files) > 0 {
		rec.KnowledgeQueryToolID = s.knowledgeToolID()
		rec.KnowledgeFileIDs = s.files
		rec.KnowledgeLabel = s.label
	}
	if s.existing != nil {
		rec.PhoneChangeCount = s.existing.PhoneChangeCount
		rec.StructuredOutputID = s.existing.StructuredOutputID
		if rec.PreviousSquadID == "" {
			rec.PreviousSquadID = s.existing.PreviousSquadID
		}
	}

	if err := d.deployments.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save deployment record: %w", err)
	}
	s.record = rec
	return nil
}

func (d *Deployer) stepLinkTemplate(ctx context.Context, s *deployment) error {
	return d.tenants.LinkTemplate(ctx, s.req.TenantID, s.tmpl.Name, s.tmpl.Version)
}

func (d *Deployer) stepCallAnalysis(ctx context.Context, s *deployment) error {
	id, err := d.provisioner.EnsureCallAnalysisOutput(ctx, s.squad.AssistantIDs(), s.tmpl.CallAnalysis, s.tmpl.Version)
	if err != nil {
		return err
	}
	if id == s.record.StructuredOutputID {
		return nil
	}
	s.record.StructuredOutputID = id
	if err := d.deployments.Save(ctx, s.record); err != nil {
		return fmt.Errorf("failed to record structured output: %w", err)
	}
	return nil
}

func (d *Deployer) stepPhoneRegistry(ctx context.Context, s *deployment) error {
	if s.record == nil {
		return errors.New("no deployment record")
	}
	return d.registry.Upsert(ctx, store.RegistryRecord{
		PhoneNumber: s.record.PhoneNumber,
		PhoneID:     s.record.PhoneID,
		SquadID:     s.record.SquadID,
		TenantID:    s.record.TenantID,
		UpdatedAt:   d.now().UTC(),
	})
}
