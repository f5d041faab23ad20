package provisioning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/provisioning"
	"github.com/imamik/squadfleet/internal/template"
	sftesting "github.com/imamik/squadfleet/internal/testing"
	"github.com/imamik/squadfleet/internal/util/retry"
)

func newProvisioner(v voice.Platform) *provisioning.Provisioner {
	return provisioning.NewProvisioner(v, logr.Discard(),
		provisioning.WithRetryOptions(retry.WithMaxRetries(2), retry.WithInitialDelay(time.Millisecond)),
	)
}

func builtinTools(t *testing.T) []template.ToolDefinition {
	t.Helper()
	defs, err := provisioning.ToolDefinitions(template.MustBuiltin())
	require.NoError(t, err)
	return defs
}

func TestToolDefinitions_UnknownReference(t *testing.T) {
	t.Parallel()
	tmpl := template.MustBuiltin()
	tmpl.Members[0].ToolRefs = append(tmpl.Members[0].ToolRefs, "teleport")

	_, err := provisioning.ToolDefinitions(tmpl)
	require.ErrorIs(t, err, provisioning.ErrUnknownTool)
}

func TestEnsureTools_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	p := newProvisioner(fake)
	defs := builtinTools(t)

	first, err := p.EnsureTools(ctx, defs, "1.0.0")
	require.NoError(t, err)
	assert.Len(t, first, len(defs))
	assert.Equal(t, len(defs), fake.Calls("CreateTool"))

	second, err := p.EnsureTools(ctx, defs, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, len(defs), fake.Calls("CreateTool"))
	assert.Len(t, fake.Tools(), len(defs))
}

func TestEnsureTools_NewVersionCreatesNewTools(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	p := newProvisioner(fake)
	defs := builtinTools(t)

	v1, err := p.EnsureTools(ctx, defs, "1.0.0")
	require.NoError(t, err)
	v2, err := p.EnsureTools(ctx, defs, "1.1.0")
	require.NoError(t, err)

	for name := range v1 {
		assert.NotEqual(t, v1[name], v2[name], name)
	}
	assert.Len(t, fake.Tools(), 2*len(defs))
}

func TestEnsureTools_AttachesCredential(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	credID := fake.AddCredential("clinic-backend")
	p := newProvisioner(fake)

	defs := []template.ToolDefinition{
		{Name: "with_cred", Description: "a", ServerURL: "https://hooks.example.com/a", CredentialName: "clinic-backend"},
		{Name: "missing_cred", Description: "b", ServerURL: "https://hooks.example.com/b", CredentialName: "nope"},
		{Name: "no_server", Description: "c"},
	}
	_, err := p.EnsureTools(ctx, defs, "1.0.0")
	require.NoError(t, err)

	byDesc := make(map[string]voice.Tool)
	for _, tool := range fake.Tools() {
		byDesc[tool.Function.Description] = tool
	}
	require.NotNil(t, byDesc["a"].Server)
	assert.Equal(t, credID, byDesc["a"].Server.CredentialID)
	require.NotNil(t, byDesc["b"].Server)
	assert.Empty(t, byDesc["b"].Server.CredentialID)
	assert.Nil(t, byDesc["c"].Server)
	assert.Equal(t, 2, fake.Calls("FindCredentialByName"))
}

func TestEnsureTools_RetriesRateLimit(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	failures := 1
	fake.CreateToolHook = func(voice.Tool) error {
		if failures > 0 {
			failures--
			return &voice.APIError{StatusCode: 429, Message: "slow down"}
		}
		return nil
	}
	p := newProvisioner(fake)

	got, err := p.EnsureTools(ctx, []template.ToolDefinition{{Name: "x", Description: "x"}}, "1.0.0")
	require.NoError(t, err)
	assert.NotEmpty(t, got["x"])
	assert.Equal(t, 2, fake.Calls("CreateTool"))
}

func TestEnsureTools_PermanentFailure(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	fake.CreateToolHook = func(voice.Tool) error {
		return &voice.APIError{StatusCode: 400, Message: "invalid parameters"}
	}
	p := newProvisioner(fake)

	_, err := p.EnsureTools(ctx, []template.ToolDefinition{{Name: "x"}}, "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid parameters")
	assert.Equal(t, 1, fake.Calls("CreateTool"))
}

func TestEnsureKnowledgeQueryTool(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	p := newProvisioner(fake)

	none, err := p.EnsureKnowledgeQueryTool(ctx, "t1", nil, "1.0.0", "faq")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Zero(t, fake.Calls("ListTools"))

	first, err := p.EnsureKnowledgeQueryTool(ctx, "t1", []string{"f2", "f1"}, "1.0.0", "faq")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := p.EnsureKnowledgeQueryTool(ctx, "t1", []string{"f1", "f2", "f1"}, "1.0.0", "faq")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.Calls("CreateTool"))

	tools := fake.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, voice.ToolTypeQuery, tools[0].Type)
	assert.Equal(t, []string{"f1", "f2"}, tools[0].KnowledgeBases[0].FileIDs)
}

func TestEnsureCallAnalysisOutput(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	p := newProvisioner(fake)
	schema := template.MustBuiltin().CallAnalysis

	id, err := p.EnsureCallAnalysisOutput(ctx, []string{"a1", "a2"}, schema, "1.0.0")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	for _, a := range []string{"a1", "a2"} {
		u, ok := fake.AssistantUpdate(a)
		require.True(t, ok, a)
		assert.Equal(t, []string{id}, u.AnalysisPlan.StructuredOutputIDs)
	}

	again, err := p.EnsureCallAnalysisOutput(ctx, []string{"a1"}, schema, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, fake.Calls("CreateStructuredOutput"))
}

func TestEnsureCallAnalysisOutput_PartialLinkFailure(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	fake.UpdateAssistantHook = func(id string, _ voice.AssistantUpdate) error {
		if id == "a2" {
			return &voice.APIError{StatusCode: 404, Message: "assistant not found"}
		}
		return nil
	}
	p := newProvisioner(fake)

	id, err := p.EnsureCallAnalysisOutput(ctx, []string{"a1", "a2", "a3"}, map[string]any{"type": "object"}, "1.0.0")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, ok := fake.AssistantUpdate("a2")
	assert.False(t, ok)
	_, ok = fake.AssistantUpdate("a3")
	assert.True(t, ok)
}

func TestEnsureCallAnalysisOutput_EmptySchema(t *testing.T) {
	t.Parallel()
	fake := sftesting.NewFakeVoice()
	id, err := newProvisioner(fake).EnsureCallAnalysisOutput(context.Background(), []string{"a1"}, nil, "1.0.0")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Zero(t, fake.Calls("ListStructuredOutputs"))
}

func TestEnsureCallAnalysisOutput_CreateFailure(t *testing.T) {
	t.Parallel()
	fake := sftesting.NewFakeVoice()
	fake.CreateStructuredOutputHook = func(voice.StructuredOutput) error { return errors.New("boom") }

	_, err := newProvisioner(fake).EnsureCallAnalysisOutput(context.Background(), []string{"a1"}, map[string]any{"type": "object"}, "1.0.0")
	require.Error(t, err)
}

func TestFindCredential(t *testing.T) {
	t.Parallel()
	ctx := sftesting.TestContext(t)
	fake := sftesting.NewFakeVoice()
	want := fake.AddCredential("backend")
	p := newProvisioner(fake)

	got, err := p.FindCredential(ctx, "backend")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = p.FindCredential(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = p.FindCredential(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
