package voice

import "time"

// Tool types understood by the platform.
const (
	ToolTypeFunction = "function"
	ToolTypeQuery    = "query"
)

// Tool is a callable tool owned by the account.
type Tool struct {
	ID             string          `json:"id,omitempty"`
	Type           string          `json:"type"`
	Function       *Function       `json:"function,omitempty"`
	Server         *Server         `json:"server,omitempty"`
	KnowledgeBases []KnowledgeBase `json:"knowledgeBases,omitempty"`
	CreatedAt      time.Time       `json:"createdAt,omitempty"`
}

// Name returns the tool's function name, which the platform treats as its
// lookup key.
func (t Tool) Name() string {
	if t.Function == nil {
		return ""
	}
	return t.Function.Name
}

// Function is the model-facing signature of a tool.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Server is the webhook a function tool calls.
type Server struct {
	URL          string `json:"url"`
	CredentialID string `json:"credentialId,omitempty"`
}

// KnowledgeBase is the file set a query tool searches.
type KnowledgeBase struct {
	Name        string   `json:"name"`
	Provider    string   `json:"provider"`
	Description string   `json:"description,omitempty"`
	FileIDs     []string `json:"fileIds"`
}

// Squad is a set of assistants that hand calls off to each other.
type Squad struct {
	ID      string        `json:"id,omitempty"`
	Name    string        `json:"name"`
	Members []SquadMember `json:"members"`
}

// SquadMember is one assistant of a squad. Requests carry the assistant
// inline; responses also carry the id the platform assigned to it.
type SquadMember struct {
	AssistantID  string        `json:"assistantId,omitempty"`
	Assistant    *Assistant    `json:"assistant,omitempty"`
	Destinations []Destination `json:"assistantDestinations,omitempty"`
}

// Destination is a handoff target within the squad.
type Destination struct {
	Type          string `json:"type"`
	AssistantName string `json:"assistantName"`
	Message       string `json:"message,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Assistant is a single voice agent.
type Assistant struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	FirstMessage string `json:"firstMessage,omitempty"`
	Model        Model  `json:"model"`
	Voice        *Voice `json:"voice,omitempty"`
}

// Model configures the assistant's language model.
type Model struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages,omitempty"`
	ToolIDs  []string  `json:"toolIds,omitempty"`
}

// Message is a prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Voice selects the assistant's text-to-speech voice.
type Voice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// AssistantUpdate is a partial assistant update.
type AssistantUpdate struct {
	AnalysisPlan *AnalysisPlan `json:"analysisPlan,omitempty"`
}

// AnalysisPlan lists the structured outputs extracted after each call.
type AnalysisPlan struct {
	StructuredOutputIDs []string `json:"structuredOutputIds"`
}

// StructuredOutput is a schema the platform extracts from call transcripts.
type StructuredOutput struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// PhoneNumber is a number imported into the platform.
type PhoneNumber struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider"`
	SquadID  string `json:"squadId,omitempty"`
}

// PhoneNumberImport imports a telephony-provider number.
type PhoneNumberImport struct {
	Provider         string `json:"provider"`
	Number           string `json:"number"`
	Name             string `json:"name,omitempty"`
	SquadID          string `json:"squadId,omitempty"`
	TwilioAccountSID string `json:"twilioAccountSid,omitempty"`
	TwilioAuthToken  string `json:"twilioAuthToken,omitempty"`
}

// PhoneNumberUpdate rebinds an imported number.
type PhoneNumberUpdate struct {
	SquadID string `json:"squadId"`
}

// Credential is a stored auth secret tools can reference by id.
type Credential struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}
