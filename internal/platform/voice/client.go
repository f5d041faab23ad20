package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/imamik/squadfleet/internal/metrics"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.vapi.ai"

// Client talks to the voice platform's REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateTool(ctx context.Context, tool Tool) (*Tool, error) {
	var out Tool
	if err := c.call(ctx, "create_tool", http.MethodPost, "/tool", tool, &out); err != nil {
		return nil, fmt.Errorf("create tool %s: %w", tool.Name(), err)
	}
	return &out, nil
}

func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var out []Tool
	if err := c.call(ctx, "list_tools", http.MethodGet, "/tool?limit=1000", nil, &out); err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return out, nil
}

func (c *Client) CreateSquad(ctx context.Context, squad Squad) (*Squad, error) {
	var out Squad
	if err := c.call(ctx, "create_squad", http.MethodPost, "/squad", squad, &out); err != nil {
		return nil, fmt.Errorf("create squad %s: %w", squad.Name, err)
	}
	return &out, nil
}

func (c *Client) UpdateSquad(ctx context.Context, id string, squad Squad) (*Squad, error) {
	var out Squad
	if err := c.call(ctx, "update_squad", http.MethodPatch, "/squad/"+url.PathEscape(id), squad, &out); err != nil {
		return nil, fmt.Errorf("update squad %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) GetSquad(ctx context.Context, id string) (*Squad, error) {
	var out Squad
	if err := c.call(ctx, "get_squad", http.MethodGet, "/squad/"+url.PathEscape(id), nil, &out); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get squad %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) ListPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	var out []PhoneNumber
	if err := c.call(ctx, "list_phone_numbers", http.MethodGet, "/phone-number?limit=1000", nil, &out); err != nil {
		return nil, fmt.Errorf("list phone numbers: %w", err)
	}
	return out, nil
}

func (c *Client) ImportPhoneNumber(ctx context.Context, req PhoneNumberImport) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.call(ctx, "import_phone_number", http.MethodPost, "/phone-number", req, &out); err != nil {
		return nil, fmt.Errorf("import phone number %s: %w", req.Number, err)
	}
	return &out, nil
}

func (c *Client) UpdatePhoneNumber(ctx context.Context, id string, req PhoneNumberUpdate) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.call(ctx, "update_phone_number", http.MethodPatch, "/phone-number/"+url.PathEscape(id), req, &out); err != nil {
		return nil, fmt.Errorf("update phone number %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) UpdateAssistant(ctx context.Context, id string, req AssistantUpdate) error {
	if err := c.call(ctx, "update_assistant", http.MethodPatch, "/assistant/"+url.PathEscape(id), req, nil); err != nil {
		return fmt.Errorf("update assistant %s: %w", id, err)
	}
	return nil
}

func (c *Client) CreateStructuredOutput(ctx context.Context, out StructuredOutput) (*StructuredOutput, error) {
	var created StructuredOutput
	if err := c.call(ctx, "create_structured_output", http.MethodPost, "/structured-output", out, &created); err != nil {
		return nil, fmt.Errorf("create structured output %s: %w", out.Name, err)
	}
	return &created, nil
}

func (c *Client) ListStructuredOutputs(ctx context.Context) ([]StructuredOutput, error) {
	var page struct {
		Results []StructuredOutput `json:"results"`
	}
	if err := c.call(ctx, "list_structured_outputs", http.MethodGet, "/structured-output?limit=1000", nil, &page); err != nil {
		return nil, fmt.Errorf("list structured outputs: %w", err)
	}
	return page.Results, nil
}

func (c *Client) FindCredentialByName(ctx context.Context, name string) (*Credential, error) {
	var creds []Credential
	if err := c.call(ctx, "list_credentials", http.MethodGet, "/credential", nil, &creds); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	for i := range creds {
		if creds[i].Name == name {
			return &creds[i], nil
		}
	}
	return nil, nil
}

// call performs one request and records its metrics.
func (c *Client) call(ctx context.Context, operation, method, path string, in, out any) error {
	start := time.Now()
	err := c.do(ctx, method, path, in, out)
	metrics.RecordPlatformCall("voice", operation, err, time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}
	return nil
}

// errorMessage extracts the platform's message field, falling back to the
// raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != nil {
		switch m := payload.Message.(type) {
		case string:
			return m
		case []any:
			if len(m) > 0 {
				return fmt.Sprint(m[0])
			}
		}
	}
	return string(bytes.TrimSpace(body))
}
