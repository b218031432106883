package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
)

// Config holds the outer per-IP limiter applied by the standalone binary
// in front of the gate. This is an operator knob for abuse control; the
// gate's own challenge-verification limiter lives in Limiter and is always
// on.
type Config struct {
	GlobalEnabled bool
	GlobalLimit   int           // requests per window per IP
	GlobalWindow  time.Duration // time window

	// Metrics collector (optional)
	Metrics *metrics.Metrics

	// Hooks receives rate-limit events (optional)
	Hooks *observability.Registry
}

// rateLimitResponse is the JSON error body for the outer limiter.
type rateLimitResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// DefaultConfig returns generous defaults meant to stop obvious floods
// without touching legitimate agent polling.
func DefaultConfig() Config {
	return Config{
		GlobalEnabled: false,
		GlobalLimit:   600,
		GlobalWindow:  1 * time.Minute,
	}
}

// GlobalLimiter creates the outer per-IP limiter middleware. When disabled
// it is a no-op wrapper.
func GlobalLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	windowSeconds := int(cfg.GlobalWindow.Seconds())
	return httprate.Limit(
		cfg.GlobalLimit,
		cfg.GlobalWindow,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Metrics != nil {
				cfg.Metrics.ObserveRateLimit("global")
			}
			if cfg.Hooks != nil {
				cfg.Hooks.EmitRateLimited(r.Context(), observability.RateLimitedEvent{
					Timestamp: time.Now(),
					Scope:     "global",
					ClientIP:  ClientIP(r),
				})
			}

			response := rateLimitResponse{
				Error:             "rate_limited",
				Message:           "Too many requests. Please slow down and try again.",
				RetryAfterSeconds: windowSeconds,
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", windowSeconds))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(response)
		}),
	)
}
