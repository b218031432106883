package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gate.
type Metrics struct {
	// Classifier metrics
	RequestsTotal *prometheus.CounterVec

	// Agent flow metrics
	AgentOutcomesTotal *prometheus.CounterVec
	KeysIssuedTotal    prometheus.Counter

	// Verify service metrics
	VerifyCallsTotal *prometheus.CounterVec
	VerifyDuration   prometheus.Histogram

	// Payment cache metrics
	PaymentCacheHitsTotal   prometheus.Counter
	PaymentCacheMissesTotal prometheus.Counter

	// Browser flow metrics
	ChallengesServedTotal prometheus.Counter
	ChallengeVerifyTotal  *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Merchant config metrics
	MerchantConfigFetchesTotal *prometheus.CounterVec

	// On-chain scanner metrics (wallet mode)
	ChainScansTotal   *prometheus.CounterVec
	ChainScanDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_requests_total",
				Help: "Total gated requests by classifier decision",
			},
			[]string{"decision"},
		),

		AgentOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_agent_outcomes_total",
				Help: "Total agent-flow terminal outcomes",
			},
			[]string{"outcome"},
		),
		KeysIssuedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentgate_keys_issued_total",
				Help: "Total agent keys minted on first 402s",
			},
		),

		VerifyCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_verify_calls_total",
				Help: "Total outbound payment verification calls",
			},
			[]string{"result"},
		),
		VerifyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentgate_verify_duration_seconds",
				Help:    "Duration of payment verification calls (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		PaymentCacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentgate_payment_cache_hits_total",
				Help: "Total payment cache hits",
			},
		),
		PaymentCacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentgate_payment_cache_misses_total",
				Help: "Total payment cache misses",
			},
		),

		ChallengesServedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentgate_challenges_served_total",
				Help: "Total browser challenge pages served",
			},
		),
		ChallengeVerifyTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_challenge_verify_total",
				Help: "Total challenge verification attempts by outcome",
			},
			[]string{"outcome"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_rate_limit_hits_total",
				Help: "Total requests rejected by rate limiting",
			},
			[]string{"scope"},
		),

		MerchantConfigFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_merchant_config_fetches_total",
				Help: "Total merchant config fetches from the verify service",
			},
			[]string{"result"},
		),

		ChainScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgate_chain_scans_total",
				Help: "Total on-chain payment scans by result",
			},
			[]string{"result"},
		),
		ChainScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentgate_chain_scan_duration_seconds",
				Help:    "Duration of on-chain payment scans",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}
}

// ObserveDecision records the classifier outcome for one request.
func (m *Metrics) ObserveDecision(decision string) {
	m.RequestsTotal.WithLabelValues(decision).Inc()
}

// ObserveAgentOutcome records an agent-flow terminal state.
func (m *Metrics) ObserveAgentOutcome(outcome string) {
	m.AgentOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveKeyIssued records a freshly minted agent key.
func (m *Metrics) ObserveKeyIssued() {
	m.KeysIssuedTotal.Inc()
}

// ObserveVerifyCall records one outbound verification and its result
// ("paid", "unpaid" or "error").
func (m *Metrics) ObserveVerifyCall(result string, duration time.Duration) {
	m.VerifyCallsTotal.WithLabelValues(result).Inc()
	m.VerifyDuration.Observe(duration.Seconds())
}

// ObservePaymentCache records a payment cache lookup.
func (m *Metrics) ObservePaymentCache(hit bool) {
	if hit {
		m.PaymentCacheHitsTotal.Inc()
	} else {
		m.PaymentCacheMissesTotal.Inc()
	}
}

// ObserveChallengeServed records a served challenge page.
func (m *Metrics) ObserveChallengeServed() {
	m.ChallengesServedTotal.Inc()
}

// ObserveChallengeVerify records a challenge verification attempt.
func (m *Metrics) ObserveChallengeVerify(outcome string) {
	m.ChallengeVerifyTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimit records a rejected request for the given scope
// ("challenge" for the gate's verification limiter, "global" for the
// binary's outer limiter).
func (m *Metrics) ObserveRateLimit(scope string) {
	m.RateLimitHitsTotal.WithLabelValues(scope).Inc()
}

// ObserveMerchantConfigFetch records a merchant config fetch.
func (m *Metrics) ObserveMerchantConfigFetch(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.MerchantConfigFetchesTotal.WithLabelValues(result).Inc()
}

// ObserveChainScan records an on-chain scan and its result.
func (m *Metrics) ObserveChainScan(result string, duration time.Duration) {
	m.ChainScansTotal.WithLabelValues(result).Inc()
	m.ChainScanDuration.Observe(duration.Seconds())
}
