// Package agentpayments wires the gate for embedding in a Go service or
// for the standalone binary. Import this package, not internal/gate.
package agentpayments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mattnewell-cam/AgentPayments/internal/chainscan"
	"github.com/mattnewell-cam/AgentPayments/internal/config"
	"github.com/mattnewell-cam/AgentPayments/internal/gate"
	"github.com/mattnewell-cam/AgentPayments/internal/httpserver"
	"github.com/mattnewell-cam/AgentPayments/internal/lifecycle"
	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
	"github.com/mattnewell-cam/AgentPayments/internal/paycache"
	"github.com/mattnewell-cam/AgentPayments/internal/ratelimit"
	"github.com/mattnewell-cam/AgentPayments/internal/verify"
	"github.com/mattnewell-cam/AgentPayments/internal/versioning"
)

// App wires the gate components for reuse or standalone serving.
type App struct {
	Config *config.Config
	Gate   *gate.Service
	Hooks  *observability.Registry

	logger           zerolog.Logger
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
	gatherer         prometheus.Gatherer
}

// Option configures App construction.
type Option func(*options)

type options struct {
	logger      *zerolog.Logger
	registerer  prometheus.Registerer
	hooks       []observability.Hook
	verifier    gate.PaymentVerifier
	merchant    gate.MerchantSource
	publicPaths []string
}

// WithLogger replaces the logger built from the config. Embedders pass
// their own so gate lines land in the host's log stream.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithMetricsRegisterer sets where gate metrics register. Defaults to the
// process-wide registerer; tests pass a private registry.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithHook registers an observability hook. The hook is attached for each
// of the event interfaces it implements.
func WithHook(h observability.Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, h)
	}
}

// WithVerifier overrides the payment verifier and merchant source built
// from the config. Both must be given; this is the seam integration tests
// use to script payment outcomes.
func WithVerifier(v gate.PaymentVerifier, m gate.MerchantSource) Option {
	return func(o *options) {
		o.verifier = v
		o.merchant = m
	}
}

// WithPublicPaths adds exact-match paths that bypass the gate, on top of
// the config's public_paths.
func WithPublicPaths(paths ...string) Option {
	return func(o *options) {
		o.publicPaths = append(o.publicPaths, paths...)
	}
}

// NewApp assembles a gate from configuration.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("agentpayments: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	if optState.logger != nil {
		app.logger = *optState.logger
	} else {
		app.logger = logger.New(logger.Config{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			Service:     "agentgate",
			Version:     versioning.Version,
			Environment: cfg.Logging.Environment,
		})
	}

	registerer := optState.registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	app.metricsCollector = metrics.New(registerer)
	if g, ok := registerer.(prometheus.Gatherer); ok {
		app.gatherer = g
	} else {
		app.gatherer = prometheus.DefaultGatherer
	}

	app.Hooks = observability.NewRegistry(app.logger)
	for _, h := range optState.hooks {
		registerHook(app.Hooks, h)
	}

	payments := paycache.New()
	app.resourceManager.RegisterFunc("payment-cache", func() error {
		payments.Stop()
		return nil
	})

	limiter := ratelimit.NewLimiter()
	app.resourceManager.RegisterFunc("challenge-limiter", func() error {
		limiter.Stop()
		return nil
	})

	verifier, merchant, err := app.buildVerification(optState)
	if err != nil {
		return nil, err
	}

	gateCfg := cfg.Gate
	gateCfg.PublicPaths = append(append([]string{}, gateCfg.PublicPaths...), optState.publicPaths...)

	svc, err := gate.NewService(gateCfg, verifier, merchant, payments, limiter, app.metricsCollector, app.Hooks)
	if err != nil {
		return nil, err
	}
	app.Gate = svc

	return app, nil
}

// buildVerification picks the payment backend for the configured mode.
// An explicit WithVerifier wins; otherwise service mode builds the verify
// client, wallet mode builds the on-chain scanner, and unconfigured mode
// leaves both nil so the gate answers 500 on agent traffic.
func (a *App) buildVerification(optState options) (gate.PaymentVerifier, gate.MerchantSource, error) {
	if optState.verifier != nil || optState.merchant != nil {
		return optState.verifier, optState.merchant, nil
	}

	switch a.Config.Mode() {
	case config.ModeVerifyService:
		client := verify.NewClient(verify.Config{
			URL:     a.Config.Gate.Verify.URL,
			APIKey:  a.Config.Gate.Verify.APIKey,
			Timeout: a.Config.Gate.Verify.Timeout.Duration,
			Metrics: a.metricsCollector,
		})
		merchant := verify.NewConfigCache(client, a.Config.Gate.Verify.ConfigTTL.Duration)
		a.logger.Info().
			Str("mode", string(config.ModeVerifyService)).
			Msg("gate verifying payments via the verify service")
		return client, merchant, nil

	case config.ModeWallet:
		minPayment, _ := strconv.ParseFloat(a.Config.Gate.MinPayment, 64)
		scanner, err := chainscan.New(chainscan.Config{
			Wallet:     a.Config.Gate.Wallet.Address,
			Network:    a.Config.Gate.Wallet.Network,
			RPCURL:     a.Config.Gate.Wallet.RPCURL,
			USDCMint:   a.Config.Gate.Wallet.USDCMint,
			MinPayment: minPayment,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("agentpayments: %w", err)
		}
		scanner.WithMetrics(a.metricsCollector)
		merchant := gate.StaticMerchant{
			Wallet:  a.Config.Gate.Wallet.Address,
			Network: a.Config.Gate.Wallet.Network,
		}
		a.logger.Info().
			Str("mode", string(config.ModeWallet)).
			Str("network", a.Config.Gate.Wallet.Network).
			Msg("gate verifying payments on-chain")
		return scanner, merchant, nil

	default:
		a.logger.Warn().
			Msg("gate has no payment verification configured; agent requests will answer 500")
		return nil, nil, nil
	}
}

// registerHook attaches h for every event interface it implements.
func registerHook(r *observability.Registry, h observability.Hook) {
	if gh, ok := h.(observability.GateHook); ok {
		r.RegisterGateHook(gh)
	}
	if ch, ok := h.(observability.ChallengeHook); ok {
		r.RegisterChallengeHook(ch)
	}
	if rh, ok := h.(observability.RateLimitHook); ok {
		r.RegisterRateLimitHook(rh)
	}
}

// Middleware wraps next with the gate. Requests get a request-scoped
// logger before classification, so every gate log line carries the
// request ID, method, path and client IP.
func (a *App) Middleware(next http.Handler) http.Handler {
	gated := a.Gate.Middleware()(next)
	return logger.Middleware(a.logger)(gated)
}

// Handler is an alias for Middleware matching the http.Handler chaining
// convention used by routers.
func (a *App) Handler(next http.Handler) http.Handler {
	return a.Middleware(next)
}

// Server builds the standalone HTTP server: the gated reverse proxy on
// the public listener and health plus metrics on the admin listener.
// The bundled logger middleware is attached by the server itself, so the
// gate middleware is used directly here rather than App.Middleware.
func (a *App) Server(upstream http.Handler) *httpserver.Server {
	return httpserver.New(a.Config, a.Gate.Middleware(), upstream, a.gatherer, a.metricsCollector, a.Hooks, a.logger)
}

// Close releases resources owned by the app (cache and limiter sweepers).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// NewMiddleware is a convenience that builds an App and returns its
// middleware plus a shutdown function.
func NewMiddleware(cfg *config.Config, opts ...Option) (func(http.Handler) http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Middleware, shutdown, nil
}

// Config is an exported alias of the internal configuration struct for
// embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding the gate.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
