package observability

import (
	"context"

	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
)

// PrometheusHook adapts gate events to the Prometheus metrics collector.
// The gate service records these counters itself when constructed with a
// collector, so register this hook only for a gate built without one;
// registering both double-counts.
type PrometheusHook struct {
	metrics *metrics.Metrics
}

// NewPrometheusHook creates a hook that emits events to Prometheus metrics.
func NewPrometheusHook(m *metrics.Metrics) *PrometheusHook {
	return &PrometheusHook{metrics: m}
}

func (h *PrometheusHook) Name() string {
	return "prometheus"
}

// ===============================================
// GateHook Implementation
// ===============================================

func (h *PrometheusHook) OnRequestClassified(ctx context.Context, event RequestClassifiedEvent) {
	h.metrics.ObserveDecision(event.Decision)
}

func (h *PrometheusHook) OnKeyIssued(ctx context.Context, event KeyIssuedEvent) {
	h.metrics.ObserveKeyIssued()
}

func (h *PrometheusHook) OnAgentOutcome(ctx context.Context, event AgentOutcomeEvent) {
	h.metrics.ObserveAgentOutcome(event.Outcome)
}

func (h *PrometheusHook) OnPaymentVerified(ctx context.Context, event PaymentVerifiedEvent) {
	h.metrics.ObservePaymentCache(event.Cached)
}

// ===============================================
// ChallengeHook Implementation
// ===============================================

func (h *PrometheusHook) OnChallengeServed(ctx context.Context, event ChallengeServedEvent) {
	h.metrics.ObserveChallengeServed()
}

func (h *PrometheusHook) OnChallengeVerified(ctx context.Context, event ChallengeVerifiedEvent) {
	h.metrics.ObserveChallengeVerify(event.Outcome)
}

// ===============================================
// RateLimitHook Implementation
// ===============================================

func (h *PrometheusHook) OnRateLimited(ctx context.Context, event RateLimitedEvent) {
	h.metrics.ObserveRateLimit(event.Scope)
}
