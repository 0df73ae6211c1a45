// Package httptransport assembles the HTTP surface: middleware stack,
// public approval routes, the operator surface, and the ops endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "quorumpay/internal/admin"
	approvalhandler "quorumpay/internal/approval/handler"
	"quorumpay/internal/jwtauth"
	"quorumpay/internal/platform/middleware"
	"quorumpay/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router mounts. Optional middlewares may be
// nil; the corresponding surface is then disabled or unthrottled.
type Deps struct {
	Logger   *slog.Logger
	Approval *approvalhandler.Handler
	Admin    *adminhandler.Handler

	// DevTokens mounts the credential-less token minter. Nil in production.
	DevTokens *jwtauth.Handler

	// Auth authenticates callers for the approval routes.
	Auth func(http.Handler) http.Handler

	// AdminAuth guards the operator surface.
	AdminAuth func(http.Handler) http.Handler

	// ProposeLimiter throttles POST /transactions per principal.
	ProposeLimiter func(http.Handler) http.Handler

	// HealthChecks are probed by /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// NewRouter wires all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", handleHealth(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.DevTokens != nil {
		r.Post("/auth/token", deps.DevTokens.HandleMintToken)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth)
		if deps.ProposeLimiter != nil {
			deps.Approval.Register(r, deps.ProposeLimiter)
		} else {
			deps.Approval.Register(r)
		}
	})

	if deps.Admin != nil && deps.AdminAuth != nil {
		r.Group(func(r chi.Router) {
			r.Use(deps.AdminAuth)
			deps.Admin.RegisterAdmin(r)
		})
	}

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
