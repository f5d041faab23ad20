package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestCreateTool(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tool", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var in Tool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "book_v3_2_0_abcd1234", in.Name())
		assert.Equal(t, "cred-1", in.Server.CredentialID)

		in.ID = "tool-1"
		_ = json.NewEncoder(w).Encode(in)
	})

	got, err := c.CreateTool(context.Background(), Tool{
		Type:     ToolTypeFunction,
		Function: &Function{Name: "book_v3_2_0_abcd1234"},
		Server:   &Server{URL: "https://hooks.example.com", CredentialID: "cred-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tool-1", got.ID)
}

func TestListTools(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":"a","type":"function","function":{"name":"x"}},{"id":"b","type":"query"}]`))
	})

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "x", tools[0].Name())
	assert.Equal(t, "", tools[1].Name())
}

func TestGetSquad_NotFoundReturnsNil(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/squad/sq-404", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Squad not found"}`))
	})

	squad, err := c.GetSquad(context.Background(), "sq-404")
	require.NoError(t, err)
	assert.Nil(t, squad)
}

func TestUpdatePhoneNumber(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/phone-number/ph-1", r.URL.Path)
		var in PhoneNumberUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(PhoneNumber{ID: "ph-1", Number: "+15550001", SquadID: in.SquadID})
	})

	got, err := c.UpdatePhoneNumber(context.Background(), "ph-1", PhoneNumberUpdate{SquadID: "sq-2"})
	require.NoError(t, err)
	assert.Equal(t, "sq-2", got.SquadID)
}

func TestUpdateAssistant_EmptyBody(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.UpdateAssistant(context.Background(), "as-1", AssistantUpdate{
		AnalysisPlan: &AnalysisPlan{StructuredOutputIDs: []string{"so-1"}},
	}))
}

func TestListStructuredOutputs(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"so-1","name":"call_analysis_v1","schema":{"type":"object"}}]}`))
	})

	outs, err := c.ListStructuredOutputs(context.Background())
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "so-1", outs[0].ID)
}

func TestFindCredentialByName(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"c1","name":"other"},{"id":"c2","name":"clinic-webhooks"}]`))
	})

	cred, err := c.FindCredentialByName(context.Background(), "clinic-webhooks")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "c2", cred.ID)

	cred, err = c.FindCredentialByName(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestAPIError_RateLimited(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":["Too many requests"]}`))
	})

	_, err := c.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.True(t, IsRateLimited(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter())
	assert.Equal(t, "Too many requests", apiErr.Message)
}

func TestAPIError_BadRequestIsNotTransient(t *testing.T) {
	t.Parallel()
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"name must be unique"}`))
	})

	_, err := c.CreateSquad(context.Background(), Squad{Name: "squad_x"})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "name must be unique")
}

func TestIsTransient(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &APIError{StatusCode: 502}, true},
		{"request timeout", &APIError{StatusCode: 408}, true},
		{"not found", &APIError{StatusCode: 404}, false},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}
