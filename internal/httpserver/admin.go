package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattnewell-cam/AgentPayments/internal/config"
	"github.com/mattnewell-cam/AgentPayments/internal/hmacutil"
	"github.com/mattnewell-cam/AgentPayments/internal/versioning"
	"github.com/mattnewell-cam/AgentPayments/pkg/responders"
)

var serverStartTime = time.Now()

// newAdminRouter serves the operator surface on its own address so the
// public port never exposes metrics or health internals.
func newAdminRouter(cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(middleware.Timeout(5 * time.Second))

	router.Get("/healthz", healthz(cfg))
	router.With(adminAuth(cfg.Server.AdminMetricsKey)).
		Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return router
}

// healthz reports liveness plus enough identity to tell deployments apart.
func healthz(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responders.JSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"uptime":    time.Since(serverStartTime).String(),
			"timestamp": time.Now().UTC(),
			"version":   versioning.Version,
			"mode":      string(cfg.Mode()),
		})
	}
}

// adminAuth protects an admin endpoint with an optional bearer key. With
// no key configured the endpoint is open; the admin port is expected to
// be private.
func adminAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !hmacutil.Equal(r.Header.Get("Authorization"), "Bearer "+apiKey) {
				responders.JSON(w, http.StatusUnauthorized, map[string]any{
					"error":   "unauthorized",
					"message": "Invalid or missing admin API key.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
