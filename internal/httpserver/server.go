// Package httpserver assembles the standalone binary's listeners: the
// gated reverse proxy on the public address and the operator surface
// (Prometheus metrics, health) on the admin address.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mattnewell-cam/AgentPayments/internal/config"
	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
	"github.com/mattnewell-cam/AgentPayments/internal/ratelimit"
)

// Server wires the public and admin listeners.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	public *http.Server
	admin  *http.Server
}

// New builds both listeners. gate wraps every proxied request; upstream
// receives whatever the gate lets through.
func New(cfg *config.Config, gate func(http.Handler) http.Handler, upstream http.Handler, gatherer prometheus.Gatherer, metricsCollector *metrics.Metrics, hooks *observability.Registry, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.Recoverer)

	if cfg.CORS.Enabled && len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Outer abuse limiter. The gate's own challenge limiter sits behind
	// this and is always on.
	router.Use(ratelimit.GlobalLimiter(ratelimit.Config{
		GlobalEnabled: cfg.RateLimit.GlobalEnabled,
		GlobalLimit:   cfg.RateLimit.GlobalLimit,
		GlobalWindow:  cfg.RateLimit.GlobalWindow.Duration,
		Metrics:       metricsCollector,
		Hooks:         hooks,
	}))

	router.Handle("/*", gate(upstream))

	return &Server{
		cfg:    cfg,
		logger: appLogger,
		public: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
		},
		admin: &http.Server{
			Addr:              cfg.Server.AdminAddress,
			Handler:           newAdminRouter(cfg, gatherer),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe starts the admin listener, then serves gated traffic.
// It blocks until the public listener stops.
func (s *Server) ListenAndServe() error {
	go func() {
		s.logger.Info().Str("address", s.admin.Addr).Msg("server.admin_listening")
		if err := s.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server.admin_listener_failed")
		}
	}()

	s.logger.Info().Str("address", s.public.Addr).Msg("server.listening")
	return s.public.ListenAndServe()
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	publicErr := s.public.Shutdown(ctx)
	adminErr := s.admin.Shutdown(ctx)
	if publicErr != nil {
		return publicErr
	}
	return adminErr
}
