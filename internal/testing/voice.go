package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/imamik/squadfleet/internal/platform/voice"
)

// FakeVoice is an in-memory voice.Platform. Hooks run before the matching
// operation; a non-nil error from a hook is returned and nothing changes.
type FakeVoice struct {
	mu          sync.Mutex
	seq         int
	calls       map[string]int
	tools       map[string]voice.Tool
	squads      map[string]voice.Squad
	phones      map[string]voice.PhoneNumber
	outputs     map[string]voice.StructuredOutput
	credentials map[string]voice.Credential
	assistants  map[string]voice.AssistantUpdate

	CreateToolHook             func(voice.Tool) error
	ListToolsHook              func() error
	CreateSquadHook            func(voice.Squad) error
	UpdateSquadHook            func(id string, squad voice.Squad) error
	ImportPhoneNumberHook      func(voice.PhoneNumberImport) error
	UpdatePhoneNumberHook      func(id string, req voice.PhoneNumberUpdate) error
	UpdateAssistantHook        func(id string, req voice.AssistantUpdate) error
	CreateStructuredOutputHook func(voice.StructuredOutput) error
}

var _ voice.Platform = (*FakeVoice)(nil)

// NewFakeVoice creates an empty FakeVoice.
func NewFakeVoice() *FakeVoice {
	return &FakeVoice{
		calls:       make(map[string]int),
		tools:       make(map[string]voice.Tool),
		squads:      make(map[string]voice.Squad),
		phones:      make(map[string]voice.PhoneNumber),
		outputs:     make(map[string]voice.StructuredOutput),
		credentials: make(map[string]voice.Credential),
		assistants:  make(map[string]voice.AssistantUpdate),
	}
}

func (f *FakeVoice) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *FakeVoice) record(op string) {
	f.calls[op]++
}

// Calls returns how many times op was invoked, including failed calls.
func (f *FakeVoice) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// AddCredential stores a credential and returns its id.
func (f *FakeVoice) AddCredential(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("cred")
	f.credentials[name] = voice.Credential{ID: id, Name: name, Provider: "webhook"}
	return id
}

// Tools returns all tools sorted by name.
func (f *FakeVoice) Tools() []voice.Tool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]voice.Tool, 0, len(f.tools))
	for _, t := range f.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Squad returns a stored squad.
func (f *FakeVoice) Squad(id string) (voice.Squad, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.squads[id]
	return s, ok
}

// SquadCount returns the number of squads that exist.
func (f *FakeVoice) SquadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.squads)
}

// DeleteSquad removes a squad as if it was deleted out of band.
func (f *FakeVoice) DeleteSquad(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.squads, id)
}

// PhoneByNumber returns an imported number.
func (f *FakeVoice) PhoneByNumber(number string) (voice.PhoneNumber, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.phones {
		if p.Number == number {
			return p, true
		}
	}
	return voice.PhoneNumber{}, false
}

// AssistantUpdate returns the last update applied to an assistant.
func (f *FakeVoice) AssistantUpdate(id string) (voice.AssistantUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.assistants[id]
	return u, ok
}

func (f *FakeVoice) CreateTool(_ context.Context, tool voice.Tool) (*voice.Tool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTool")
	if f.CreateToolHook != nil {
		if err := f.CreateToolHook(tool); err != nil {
			return nil, err
		}
	}
	tool.ID = f.nextID("tool")
	f.tools[tool.ID] = tool
	return &tool, nil
}

func (f *FakeVoice) ListTools(context.Context) ([]voice.Tool, error) {
	f.mu.Lock()
	f.record("ListTools")
	hook := f.ListToolsHook
	f.mu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return nil, err
		}
	}
	return f.Tools(), nil
}

func (f *FakeVoice) CreateSquad(_ context.Context, squad voice.Squad) (*voice.Squad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSquad")
	if f.CreateSquadHook != nil {
		if err := f.CreateSquadHook(squad); err != nil {
			return nil, err
		}
	}
	squad.ID = f.nextID("squad")
	f.assignAssistants(&squad, voice.Squad{})
	f.squads[squad.ID] = squad
	return &squad, nil
}

func (f *FakeVoice) UpdateSquad(_ context.Context, id string, squad voice.Squad) (*voice.Squad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateSquad")
	if f.UpdateSquadHook != nil {
		if err := f.UpdateSquadHook(id, squad); err != nil {
			return nil, err
		}
	}
	existing, ok := f.squads[id]
	if !ok {
		return nil, &voice.APIError{StatusCode: 404, Message: "squad not found"}
	}
	squad.ID = id
	f.assignAssistants(&squad, existing)
	f.squads[id] = squad
	return &squad, nil
}

// assignAssistants gives each inline member an assistant id, keeping the id
// a same-named member had before.
func (f *FakeVoice) assignAssistants(squad *voice.Squad, previous voice.Squad) {
	known := make(map[string]string)
	for _, m := range previous.Members {
		if m.Assistant != nil {
			known[m.Assistant.Name] = m.AssistantID
		}
	}
	for i := range squad.Members {
		m := &squad.Members[i]
		if m.AssistantID != "" || m.Assistant == nil {
			continue
		}
		if id, ok := known[m.Assistant.Name]; ok {
			m.AssistantID = id
			continue
		}
		m.AssistantID = f.nextID("asst")
	}
}

func (f *FakeVoice) GetSquad(_ context.Context, id string) (*voice.Squad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSquad")
	s, ok := f.squads[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *FakeVoice) ListPhoneNumbers(context.Context) ([]voice.PhoneNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListPhoneNumbers")
	out := make([]voice.PhoneNumber, 0, len(f.phones))
	for _, p := range f.phones {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *FakeVoice) ImportPhoneNumber(_ context.Context, req voice.PhoneNumberImport) (*voice.PhoneNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ImportPhoneNumber")
	if f.ImportPhoneNumberHook != nil {
		if err := f.ImportPhoneNumberHook(req); err != nil {
			return nil, err
		}
	}
	for _, p := range f.phones {
		if p.Number == req.Number {
			return nil, &voice.APIError{StatusCode: 400, Message: "number already imported"}
		}
	}
	p := voice.PhoneNumber{
		ID:       f.nextID("phone"),
		Number:   req.Number,
		Name:     req.Name,
		Provider: req.Provider,
		SquadID:  req.SquadID,
	}
	f.phones[p.ID] = p
	return &p, nil
}

func (f *FakeVoice) UpdatePhoneNumber(_ context.Context, id string, req voice.PhoneNumberUpdate) (*voice.PhoneNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdatePhoneNumber")
	if f.UpdatePhoneNumberHook != nil {
		if err := f.UpdatePhoneNumberHook(id, req); err != nil {
			return nil, err
		}
	}
	p, ok := f.phones[id]
	if !ok {
		return nil, &voice.APIError{StatusCode: 404, Message: "phone number not found"}
	}
	p.SquadID = req.SquadID
	f.phones[id] = p
	return &p, nil
}

func (f *FakeVoice) UpdateAssistant(_ context.Context, id string, req voice.AssistantUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateAssistant")
	if f.UpdateAssistantHook != nil {
		if err := f.UpdateAssistantHook(id, req); err != nil {
			return err
		}
	}
	f.assistants[id] = req
	return nil
}

func (f *FakeVoice) CreateStructuredOutput(_ context.Context, out voice.StructuredOutput) (*voice.StructuredOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateStructuredOutput")
	if f.CreateStructuredOutputHook != nil {
		if err := f.CreateStructuredOutputHook(out); err != nil {
			return nil, err
		}
	}
	out.ID = f.nextID("so")
	f.outputs[out.ID] = out
	return &out, nil
}

func (f *FakeVoice) ListStructuredOutputs(context.Context) ([]voice.StructuredOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListStructuredOutputs")
	out := make([]voice.StructuredOutput, 0, len(f.outputs))
	for _, o := range f.outputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *FakeVoice) FindCredentialByName(_ context.Context, name string) (*voice.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindCredentialByName")
	c, ok := f.credentials[name]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
