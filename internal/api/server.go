package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/squadfleet/internal/deploy"
	"github.com/imamik/squadfleet/internal/fleet"
	"github.com/imamik/squadfleet/internal/metrics"
)

// Deployer runs single-tenant operations.
type Deployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*deploy.Result, error)
	ChangeNumber(ctx context.Context, tenantID string) (*deploy.ChangeResult, error)
}

// Upgrader runs fleet upgrades.
type Upgrader interface {
	Upgrade(ctx context.Context, req fleet.UpgradeRequest) (*fleet.Report, error)
}

// Server serves the HTTP API.
type Server struct {
	deployer Deployer
	upgrader Upgrader
	log      logr.Logger
}

// NewServer creates a Server.
func NewServer(deployer Deployer, upgrader Upgrader, log logr.Logger) *Server {
	return &Server{deployer: deployer, upgrader: upgrader, log: log.WithName("api")}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(recordMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/tenants/{tenantID}/deploy", s.handleDeploy)
		r.Post("/tenants/{tenantID}/phone-number/change", s.handleChangeNumber)
		r.Post("/upgrades", s.handleUpgrade)
	})
	return r
}

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
