package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/store"
	"github.com/imamik/squadfleet/internal/template"
)

type mockDeployer struct {
	mock.Mock
}

func (m *mockDeployer) Deploy(ctx context.Context, req deploy.Request) (*deploy.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deploy.Result), args.Error(1)
}

func (m *mockDeployer) ChangeNumber(ctx context.Context, tenantID string) (*deploy.ChangeResult, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deploy.ChangeResult), args.Error(1)
}

type mockUpgrader struct {
	mock.Mock
}

func (m *mockUpgrader) Upgrade(ctx context.Context, req fleet.UpgradeRequest) (*fleet.Report, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleet.Report), args.Error(1)
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestDeploy(t *testing.T) {
	t.Parallel()
	d := &mockDeployer{}
	d.On("Deploy", mock.Anything, deploy.Request{
		TenantID:  "clinic-1",
		Voice:     template.Voice{Provider: "11labs", VoiceID: "rachel"},
		Knowledge: &deploy.Knowledge{FileIDs: []string{"f1"}},
	}).Return(&deploy.Result{
		Record:       &store.DeploymentRecord{TenantID: "clinic-1", SquadID: "squad_1", PhoneNumber: "+12125550100"},
		NumberSource: phonepool.SourceInventory,
	}, nil)

	h := NewServer(d, &mockUpgrader{}, logr.Discard()).Handler()
	w, resp := do(t, h, http.MethodPost, "/v1/tenants/clinic-1/deploy",
		`{"voice":{"provider":"11labs","voiceId":"rachel"},"knowledge":{"fileIds":["f1"]}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var res deploy.Result
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Equal(t, "squad_1", res.Record.SquadID)
	d.AssertExpectations(t)
}

func TestDeploy_EmptyBody(t *testing.T) {
	t.Parallel()
	d := &mockDeployer{}
	d.On("Deploy", mock.Anything, deploy.Request{TenantID: "clinic-1"}).
		Return(&deploy.Result{Record: &store.DeploymentRecord{TenantID: "clinic-1"}}, nil)

	w, resp := do(t, NewServer(d, &mockUpgrader{}, logr.Discard()).Handler(), http.MethodPost, "/v1/tenants/clinic-1/deploy", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestDeploy_InvalidBody(t *testing.T) {
	t.Parallel()
	d := &mockDeployer{}
	w, resp := do(t, NewServer(d, &mockUpgrader{}, logr.Discard()).Handler(), http.MethodPost, "/v1/tenants/clinic-1/deploy", "{")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid request body")
	d.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything)
}

func TestDeploy_ErrorStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"tenant not found", fmt.Errorf("load-account step failed: %w", deploy.ErrTenantNotFound), http.StatusNotFound},
		{"payment method", &deploy.StepError{Step: "load-account", Err: deploy.ErrPaymentMethodRequired}, http.StatusPaymentRequired},
		{"no number", fmt.Errorf("%w in US", phonepool.ErrNoPhoneNumberAvailable), http.StatusServiceUnavailable},
		{"no template", template.ErrNoTemplate, http.StatusUnprocessableEntity},
		{"platform", errors.New("squad rejected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := &mockDeployer{}
			d.On("Deploy", mock.Anything, mock.Anything).Return(nil, tt.err)

			w, resp := do(t, NewServer(d, &mockUpgrader{}, logr.Discard()).Handler(), http.MethodPost, "/v1/tenants/x/deploy", "")
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestChangeNumber(t *testing.T) {
	t.Parallel()
	d := &mockDeployer{}
	d.On("ChangeNumber", mock.Anything, "clinic-1").Return(&deploy.ChangeResult{
		OldNumber:        "+12125550100",
		NewNumber:        "+12125550101",
		ChangesRemaining: 4,
	}, nil)

	w, resp := do(t, NewServer(d, &mockUpgrader{}, logr.Discard()).Handler(), http.MethodPost, "/v1/tenants/clinic-1/phone-number/change", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res deploy.ChangeResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Equal(t, "+12125550101", res.NewNumber)
	assert.Equal(t, 4, res.ChangesRemaining)
}

func TestChangeNumber_QuotaExceeded(t *testing.T) {
	t.Parallel()
	d := &mockDeployer{}
	d.On("ChangeNumber", mock.Anything, "clinic-1").
		Return(nil, &deploy.StepError{Step: "check-quota", Err: deploy.ErrChangeQuotaExceeded})

	w, resp := do(t, NewServer(d, &mockUpgrader{}, logr.Discard()).Handler(), http.MethodPost, "/v1/tenants/clinic-1/phone-number/change", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "check-quota")
}

func TestUpgrade(t *testing.T) {
	t.Parallel()
	u := &mockUpgrader{}
	u.On("Upgrade", mock.Anything, fleet.UpgradeRequest{Template: "clinic-receptionist", DryRun: true}).
		Return(&fleet.Report{
			DryRun:        true,
			Template:      "clinic-receptionist",
			TargetVersion: "4.0.0",
			Preview:       &fleet.Preview{Total: 2, WillUpgrade: 1, WillSkip: 1},
		}, nil)

	w, resp := do(t, NewServer(&mockDeployer{}, u, logr.Discard()).Handler(), http.MethodPost, "/v1/upgrades",
		`{"template":"clinic-receptionist","dryRun":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var report fleet.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, 1, report.Preview.WillUpgrade)
	assert.Nil(t, report.Summary)
	u.AssertExpectations(t)
}

func TestUpgrade_TemplateRequired(t *testing.T) {
	t.Parallel()
	u := &mockUpgrader{}
	w, resp := do(t, NewServer(&mockDeployer{}, u, logr.Discard()).Handler(), http.MethodPost, "/v1/upgrades", `{"force":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "template is required")
	u.AssertNotCalled(t, "Upgrade", mock.Anything, mock.Anything)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	NewServer(&mockDeployer{}, &mockUpgrader{}, logr.Discard()).Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	h := NewServer(&mockDeployer{}, &mockUpgrader{}, logr.Discard()).Handler()
	do(t, h, http.MethodGet, "/healthz", "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "squadfleet_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	w, _ := do(t, NewServer(&mockDeployer{}, &mockUpgrader{}, logr.Discard()).Handler(), http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
