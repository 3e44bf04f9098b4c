// Package httptransport assembles the HTTP surface: shared middleware, the
// health and metrics endpoints, and every module's routes under /v1.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rankgate/internal/platform/metrics"
	"rankgate/internal/platform/middleware"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/httputil"
	"rankgate/pkg/platform/middleware/auth"
	"rankgate/pkg/platform/middleware/metadata"
	"rankgate/pkg/platform/middleware/requesttime"
	"rankgate/pkg/requestcontext"
)

// Registrar mounts a module's authenticated routes.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar also mounts routes that run before authentication.
type PublicRegistrar interface {
	Registrar
	RegisterPublic(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router mounts. Nil Limiter, Metrics and
// Registry disable their concern.
type Deps struct {
	Members       PublicRegistrar
	Forums        Registrar
	Chats         Registrar
	Verifications Registrar

	Authenticator  auth.Authenticator
	Limiter        func(http.Handler) http.Handler
	Metrics        *metrics.Metrics
	Registry       *prometheus.Registry
	Checks         map[string]HealthCheck
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter builds the root handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(otelhttp.NewMiddleware("rankgate.http"))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.AccessLog(d.Logger))
	r.Use(d.Metrics.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, d.Logger))
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Registry))
	}

	r.Route("/v1", func(v1 chi.Router) {
		if d.RequestTimeout > 0 {
			v1.Use(chimw.Timeout(d.RequestTimeout))
		}
		v1.Group(func(public chi.Router) {
			if d.Limiter != nil {
				public.Use(d.Limiter)
			}
			d.Members.RegisterPublic(public)
		})
		v1.Group(func(protected chi.Router) {
			protected.Use(auth.RequireAuth(d.Authenticator, d.Logger))
			if d.Limiter != nil {
				protected.Use(d.Limiter)
			}
			d.Members.Register(protected)
			d.Forums.Register(protected)
			d.Chats.Register(protected)
			d.Verifications.Register(protected)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	return r
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readinessResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed",
					"check", name,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
