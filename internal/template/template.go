package template

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mitchellh/copystructure"
	"gopkg.in/yaml.v3"
)

// KnowledgeToolRef is the tool reference a member uses to request the
// tenant's knowledge-query tool. It has no static definition; it is bound at
// deployment time when the tenant has knowledge files.
const KnowledgeToolRef = "knowledge_query"

// Source identifies where a resolved template came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceDB      Source = "db"
)

// Template is an immutable, versioned squad blueprint.
type Template struct {
	Name    string           `yaml:"name" json:"name"`
	Version string           `yaml:"version" json:"version"`
	Members []Member         `yaml:"members" json:"members"`
	Tools   []ToolDefinition `yaml:"tools" json:"tools"`

	// CallAnalysis is the JSON schema of the structured output extracted
	// from every call.
	CallAnalysis map[string]any `yaml:"callAnalysis,omitempty" json:"callAnalysis,omitempty"`

	// Active is only meaningful for persisted copies; an inactive persisted
	// template is ignored by Resolve.
	Active bool `yaml:"-" json:"active"`
}

// Member is one assistant of a squad.
type Member struct {
	Name         string        `yaml:"name" json:"name"`
	SystemPrompt string        `yaml:"systemPrompt" json:"systemPrompt"`
	FirstMessage string        `yaml:"firstMessage,omitempty" json:"firstMessage,omitempty"`
	ToolRefs     []string      `yaml:"tools,omitempty" json:"tools,omitempty"`
	Destinations []Destination `yaml:"destinations,omitempty" json:"destinations,omitempty"`
	Voice        *Voice        `yaml:"voice,omitempty" json:"voice,omitempty"`
}

// Destination is a handoff edge from one member to another.
type Destination struct {
	Member      string `yaml:"member" json:"member"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Voice selects a text-to-speech voice.
type Voice struct {
	Provider string `yaml:"provider" json:"provider"`
	VoiceID  string `yaml:"voiceId" json:"voiceId"`
}

// ToolDefinition describes a function tool the squad can call.
type ToolDefinition struct {
	Name           string         `yaml:"name" json:"name"`
	Description    string         `yaml:"description" json:"description"`
	Parameters     map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	ServerURL      string         `yaml:"serverUrl,omitempty" json:"serverUrl,omitempty"`
	CredentialName string         `yaml:"credential,omitempty" json:"credential,omitempty"`
}

// Fingerprint returns a stable encoding of the definition, used to derive
// the tool's lookup key.
func (d ToolDefinition) Fingerprint() []byte {
	b, err := json.Marshal(d)
	if err != nil {
		return []byte(d.Name)
	}
	return b
}

// Parse decodes a YAML template.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Marshal encodes the template as YAML.
func (t *Template) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Validate checks structural invariants.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if _, err := ParseVersion(t.Version); err != nil {
		return fmt.Errorf("template %s: %w", t.Name, err)
	}
	if len(t.Members) == 0 {
		return fmt.Errorf("template %s has no members", t.Name)
	}

	seen := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		if m.Name == "" {
			return fmt.Errorf("template %s has a member without a name", t.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("template %s has duplicate member %q", t.Name, m.Name)
		}
		seen[m.Name] = true
	}
	for _, m := range t.Members {
		for _, d := range m.Destinations {
			if !seen[d.Member] {
				return fmt.Errorf("member %q hands off to unknown member %q", m.Name, d.Member)
			}
		}
	}
	return nil
}

// Clone returns a deep copy that can be transformed without touching t.
func (t *Template) Clone() *Template {
	c, err := copystructure.Copy(t)
	if err != nil {
		// copystructure only fails on unsupported kinds (channels, funcs),
		// which Template never contains.
		panic(fmt.Sprintf("template: clone failed: %v", err))
	}
	return c.(*Template)
}

// Member returns the member with the given name.
func (t *Template) Member(name string) (Member, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Tool returns the tool definition with the given name.
func (t *Template) Tool(name string) (ToolDefinition, bool) {
	for _, d := range t.Tools {
		if d.Name == name {
			return d, true
		}
	}
	return ToolDefinition{}, false
}

// ReferencedTools returns the distinct tool references across all members in
// first-seen order, excluding KnowledgeToolRef.
func (t *Template) ReferencedTools() []string {
	var refs []string
	for _, m := range t.Members {
		for _, ref := range m.ToolRefs {
			if ref == KnowledgeToolRef || slices.Contains(refs, ref) {
				continue
			}
			refs = append(refs, ref)
		}
	}
	return refs
}
