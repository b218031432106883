package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// ServiceType identifies an external dependency with its own breaker, so
// a flapping verify service cannot trip scans and vice versa.
type ServiceType string

const (
	// ServiceVerify covers the hosted verify service: payment checks and
	// merchant config fetches share one breaker.
	ServiceVerify ServiceType = "verify_service"

	// ServiceSolanaRPC covers direct on-chain scanning in wallet mode.
	ServiceSolanaRPC ServiceType = "solana_rpc"
)

// Manager holds one circuit breaker per external service.
type Manager struct {
	breakers map[ServiceType]*gobreaker.CircuitBreaker
	config   Config
}

// Config holds circuit breaker configuration for all services.
type Config struct {
	// Enabled turns breakers off entirely when false; Execute becomes a
	// pass-through.
	Enabled bool

	Verify    BreakerConfig
	SolanaRPC BreakerConfig

	// OnStateChange, when set, observes breaker transitions. The gate
	// wires this to its structured logger.
	OnStateChange func(service, from, to string)
}

// BreakerConfig configures a single circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed through a
	// half-open breaker.
	MaxRequests uint32

	// Interval is the cyclic period in closed state after which counts
	// reset. Zero never resets.
	Interval time.Duration

	// Timeout is how long an open breaker waits before going half-open.
	Timeout time.Duration

	// Trip thresholds: consecutive failures, or a failure ratio over at
	// least MinRequests requests.
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// NewManager creates a circuit breaker manager with the given configuration.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		breakers: make(map[ServiceType]*gobreaker.CircuitBreaker),
		config:   cfg,
	}

	if !cfg.Enabled {
		return m
	}

	m.breakers[ServiceVerify] = gobreaker.NewCircuitBreaker(m.settings(ServiceVerify, cfg.Verify))
	m.breakers[ServiceSolanaRPC] = gobreaker.NewCircuitBreaker(m.settings(ServiceSolanaRPC, cfg.SolanaRPC))

	return m
}

// Execute wraps a call with circuit breaker protection. Disabled or
// unconfigured services pass through untouched.
func (m *Manager) Execute(service ServiceType, fn func() (interface{}, error)) (interface{}, error) {
	if m == nil || !m.config.Enabled {
		return fn()
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return fn()
	}

	return breaker.Execute(fn)
}

// State returns the current state of a service's breaker, or "disabled"
// when breakers are off.
func (m *Manager) State(service ServiceType) string {
	if m == nil || !m.config.Enabled {
		return "disabled"
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return "not_configured"
	}

	return breaker.State().String()
}

func (m *Manager) settings(service ServiceType, cfg BreakerConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        string(service),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if cfg.FailureRatio > 0 && cfg.MinRequests > 0 && counts.Requests >= cfg.MinRequests {
				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
				if failureRate >= cfg.FailureRatio {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if m.config.OnStateChange != nil {
				m.config.OnStateChange(name, from.String(), to.String())
			}
		},
	}
}

// DefaultConfig returns the breaker settings the gate ships with. The
// verify breaker trips faster than the RPC one: an unreachable verify
// service turns every agent request into a slow 402, while RPC scans are
// already bounded by the request context.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Verify: BreakerConfig{
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
			FailureRatio:        0.5,
			MinRequests:         10,
		},
		SolanaRPC: BreakerConfig{
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 8,
			FailureRatio:        0.6,
			MinRequests:         10,
		},
	}
}
