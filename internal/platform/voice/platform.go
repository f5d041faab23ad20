package voice

import "context"

// Platform is the set of voice-platform operations the provisioner needs.
type Platform interface {
	CreateTool(ctx context.Context, tool Tool) (*Tool, error)
	ListTools(ctx context.Context) ([]Tool, error)

	CreateSquad(ctx context.Context, squad Squad) (*Squad, error)
	UpdateSquad(ctx context.Context, id string, squad Squad) (*Squad, error)
	// GetSquad returns nil when the squad does not exist.
	GetSquad(ctx context.Context, id string) (*Squad, error)

	ListPhoneNumbers(ctx context.Context) ([]PhoneNumber, error)
	ImportPhoneNumber(ctx context.Context, req PhoneNumberImport) (*PhoneNumber, error)
	UpdatePhoneNumber(ctx context.Context, id string, req PhoneNumberUpdate) (*PhoneNumber, error)

	UpdateAssistant(ctx context.Context, id string, req AssistantUpdate) error
	CreateStructuredOutput(ctx context.Context, out StructuredOutput) (*StructuredOutput, error)
	ListStructuredOutputs(ctx context.Context) ([]StructuredOutput, error)

	// FindCredentialByName returns nil when no credential has that name.
	FindCredentialByName(ctx context.Context, name string) (*Credential, error)
}

var _ Platform = (*Client)(nil)
