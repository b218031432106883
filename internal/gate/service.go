// Package gate implements the request gate itself: the classifier that
// sorts traffic into public, browser and agent lanes, the agent payment
// flow, and the browser challenge flow. Everything else in this module
// exists to serve this package.
package gate

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/config"
	"github.com/mattnewell-cam/AgentPayments/internal/hmacutil"
	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
	"github.com/mattnewell-cam/AgentPayments/internal/paycache"
	"github.com/mattnewell-cam/AgentPayments/internal/ratelimit"
	"github.com/mattnewell-cam/AgentPayments/internal/verify"
)

// PaymentVerifier answers whether the payment for a memo has been observed.
// The verify service client and the on-chain scanner both satisfy it.
type PaymentVerifier interface {
	CheckPayment(ctx context.Context, memo string) (bool, error)
}

// MerchantSource resolves the wallet and network that 402 responses quote.
type MerchantSource interface {
	Merchant(ctx context.Context) (verify.MerchantConfig, error)
}

// StaticMerchant is the MerchantSource for wallet mode, where the operator
// configures the destination directly and no fetch can fail.
type StaticMerchant struct {
	Wallet  string
	Network string // devnet | mainnet-beta
}

// Merchant returns the configured wallet and network.
func (m StaticMerchant) Merchant(ctx context.Context) (verify.MerchantConfig, error) {
	return verify.MerchantConfig{WalletAddress: m.Wallet, Network: m.Network}, nil
}

// Service is one gate instance: a classifier plus the two flows, sharing a
// payment cache and a challenge rate limiter. All state lives here; there
// are no package-level variables. Safe for concurrent use.
type Service struct {
	secret          string
	minPayment      string
	publicPaths     map[string]struct{}
	insecureCookies bool

	// verifier and merchant are nil when the gate runs unconfigured;
	// agent requests then answer 500 instead of quoting a payment
	// nobody can verify.
	verifier PaymentVerifier
	merchant MerchantSource

	payments *paycache.Cache
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics        // optional
	hooks    *observability.Registry // optional
}

// NewService constructs a gate. The placeholder challenge secret is
// refused outside debug mode: a gate signing with it would accept keys and
// cookies minted by every other deployment that never changed theirs.
// Config loading performs the same check; this one covers embedders that
// build a GateConfig directly.
func NewService(cfg config.GateConfig, verifier PaymentVerifier, merchant MerchantSource, payments *paycache.Cache, limiter *ratelimit.Limiter, metricsCollector *metrics.Metrics, hooks *observability.Registry) (*Service, error) {
	if cfg.ChallengeSecret == "" {
		return nil, errors.New("gate: challenge secret is required")
	}
	if hmacutil.IsSentinel(cfg.ChallengeSecret) && !cfg.Debug {
		return nil, errors.New("gate: refusing to run with the placeholder challenge secret outside debug mode")
	}
	if payments == nil {
		return nil, errors.New("gate: payment cache is required")
	}
	if limiter == nil {
		return nil, errors.New("gate: rate limiter is required")
	}
	// Unconfigured mode is both nil; configured mode is both set. A
	// verifier without a merchant source could verify payments but never
	// quote them, and vice versa.
	if (verifier == nil) != (merchant == nil) {
		return nil, errors.New("gate: payment verifier and merchant source must be configured together")
	}

	minPayment := cfg.MinPayment
	if minPayment == "" {
		minPayment = "0.01"
	}

	publicPaths := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		publicPaths[p] = struct{}{}
	}

	return &Service{
		secret:          cfg.ChallengeSecret,
		minPayment:      minPayment,
		publicPaths:     publicPaths,
		insecureCookies: cfg.InsecureCookies,
		verifier:        verifier,
		merchant:        merchant,
		payments:        payments,
		limiter:         limiter,
		metrics:         metricsCollector,
		hooks:           hooks,
	}, nil
}

// Middleware wraps next with the gate. Public paths, verified browsers and
// paid agents reach next untouched; everything else is answered here.
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := s.classify(r)
			s.observeDecision(r, d)

			switch d.Kind {
			case KindPublicPath, KindBrowserCookie:
				next.ServeHTTP(w, r)
			case KindChallengeVerify:
				s.handleChallengeVerify(w, r)
			case KindAgentNoKey, KindAgentWithKey:
				if s.serveAgent(w, r, d) {
					next.ServeHTTP(w, r)
				}
			case KindBrowserNoCookie:
				s.serveChallengePage(w, r)
			}
		})
	}
}

// observeDecision records the classifier verdict on the metrics collector
// and the hook registry.
func (s *Service) observeDecision(r *http.Request, d Decision) {
	if s.metrics != nil {
		s.metrics.ObserveDecision(d.Kind.String())
	}
	if s.hooks != nil {
		s.hooks.EmitRequestClassified(r.Context(), observability.RequestClassifiedEvent{
			Timestamp: time.Now(),
			Decision:  d.Kind.String(),
			Method:    r.Method,
			Path:      r.URL.Path,
			ClientIP:  ratelimit.ClientIP(r),
		})
	}
}
