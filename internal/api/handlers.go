package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/phonepool"
	"github.com/imamik/squadfleet/internal/template"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DeployRequest is the body of POST /v1/tenants/{tenantID}/deploy.
type DeployRequest struct {
	Voice            template.Voice    `json:"voice"`
	Knowledge        *deploy.Knowledge `json:"knowledge,omitempty"`
	Template         string            `json:"template,omitempty"`
	PreferredCountry string            `json:"preferredCountry,omitempty"`
}

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var body DeployRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.deployer.Deploy(r.Context(), deploy.Request{
		TenantID:         tenantID,
		Voice:            body.Voice,
		Knowledge:        body.Knowledge,
		TemplateName:     body.Template,
		PreferredCountry: body.PreferredCountry,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: res})
}

func (s *Server) handleChangeNumber(w http.ResponseWriter, r *http.Request) {
	res, err := s.deployer.ChangeNumber(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: res})
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var body fleet.UpgradeRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Template == "" {
		s.fail(w, r, fmt.Errorf("%w: template is required", errBadRequest))
		return
	}

	report, err := s.upgrader.Upgrade(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: report})
}

func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

// fail writes an error envelope with a status derived from err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := s.log.WithValues("method", r.Method, "path", r.URL.Path, "status", status, "requestID", requestIDFrom(r.Context()))
	if status >= http.StatusInternalServerError {
		log.Error(err, "request failed")
	} else {
		log.V(1).Info("request rejected", "error", err.Error())
	}
	writeJSON(w, status, envelope{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, deploy.ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, deploy.ErrPaymentMethodRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, deploy.ErrNotDeployed), errors.Is(err, deploy.ErrChangeQuotaExceeded):
		return http.StatusConflict
	case errors.Is(err, phonepool.ErrNoPhoneNumberAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, template.ErrNoTemplate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
