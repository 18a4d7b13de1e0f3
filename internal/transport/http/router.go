// Package httptransport assembles the HTTP surface: middleware chain, domain
// routes, health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"personad/internal/person/handler"
	"personad/internal/platform/metrics"
	"personad/internal/platform/middleware"
	"personad/pkg/platform/httputil"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Config carries the router's wiring.
type Config struct {
	Person  *handler.Handler
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// RequestTimeout bounds a whole request including both pipeline stages.
	RequestTimeout time.Duration
	// Checks are named dependency probes for /healthz.
	Checks map[string]HealthCheck
}

// NewRouter wires all endpoints. Domain routes live under /v1; operational
// endpoints sit at the root, outside the JSON middleware.
func NewRouter(cfg Config) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	r := chi.NewRouter()
	r.Get("/healthz", healthHandler(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Recovery(cfg.Logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(cfg.Logger))
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(cfg.Metrics))
		cfg.Person.Register(r)
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		httputil.WriteJSON(w, status, body)
	}
}
