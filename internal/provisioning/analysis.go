package provisioning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/util/async"
	"github.com/imamik/squadfleet/internal/util/naming"
)

// EnsureCallAnalysisOutput ensures the structured output for schema exists
// and links it to every assistant. It returns "" when schema is empty.
// Assistants that cannot be linked are logged and skipped; only a failure to
// ensure the output itself is returned.
func (p *Provisioner) EnsureCallAnalysisOutput(ctx context.Context, assistantIDs []string, schema map[string]any, version string) (string, error) {
	if len(schema) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to encode call analysis schema: %w", err)
	}
	key := naming.CallAnalysisOutput(version, encoded)

	outputs, err := call(ctx, p, func() ([]voice.StructuredOutput, error) {
		return p.voice.ListStructuredOutputs(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("failed to list structured outputs: %w", err)
	}

	id, err := (&ensureOperation[*voice.StructuredOutput]{
		Key:          key,
		ResourceType: "structured output",
		Find: func(context.Context) (*voice.StructuredOutput, error) {
			for i := range outputs {
				if outputs[i].Name == key {
					return &outputs[i], nil
				}
			}
			return nil, nil
		},
		Create: func(ctx context.Context) (*voice.StructuredOutput, error) {
			return p.voice.CreateStructuredOutput(ctx, voice.StructuredOutput{Name: key, Schema: schema})
		},
		ID: func(o *voice.StructuredOutput) string { return o.ID },
	}).execute(ctx, p)
	if err != nil {
		return "", err
	}

	tasks := make([]async.Task, 0, len(assistantIDs))
	for _, assistantID := range assistantIDs {
		tasks = append(tasks, async.Task{
			Name: assistantID,
			Func: func(ctx context.Context) error {
				_, err := call(ctx, p, func() (struct{}, error) {
					return struct{}{}, p.voice.UpdateAssistant(ctx, assistantID, voice.AssistantUpdate{
						AnalysisPlan: &voice.AnalysisPlan{StructuredOutputIDs: []string{id}},
					})
				})
				return err
			},
		})
	}
	linked := 0
	for _, res := range async.RunBounded(ctx, p.linkConcurrency, tasks) {
		if res.Err != nil {
			LogResourceFailed(p.log, res.Err, "call analysis link", res.Name)
			continue
		}
		linked++
	}
	p.log.V(1).Info("linked call analysis output", "output", id, "linked", linked, "assistants", len(assistantIDs))
	return id, nil
}
