package observability

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Registry manages a collection of observability hooks.
// It safely dispatches events to all registered hooks with error handling.
type Registry struct {
	gateHooks      []GateHook
	challengeHooks []ChallengeHook
	rateLimitHooks []RateLimitHook
	logger         zerolog.Logger
	mu             sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger,
	}
}

// RegisterGateHook adds a gate hook to the registry.
func (r *Registry) RegisterGateHook(hook GateHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateHooks = append(r.gateHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered gate hook")
}

// RegisterChallengeHook adds a challenge hook to the registry.
func (r *Registry) RegisterChallengeHook(hook ChallengeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challengeHooks = append(r.challengeHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered challenge hook")
}

// RegisterRateLimitHook adds a rate-limit hook to the registry.
func (r *Registry) RegisterRateLimitHook(hook RateLimitHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimitHooks = append(r.rateLimitHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered rate-limit hook")
}

// ===============================================
// Gate Hook Dispatchers
// ===============================================

// EmitRequestClassified dispatches the event to all gate hooks.
func (r *Registry) EmitRequestClassified(ctx context.Context, event RequestClassifiedEvent) {
	r.mu.RLock()
	hooks := r.gateHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnRequestClassified", hook.Name())
			hook.OnRequestClassified(ctx, event)
		}()
	}
}

// EmitKeyIssued dispatches the event to all gate hooks.
func (r *Registry) EmitKeyIssued(ctx context.Context, event KeyIssuedEvent) {
	r.mu.RLock()
	hooks := r.gateHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnKeyIssued", hook.Name())
			hook.OnKeyIssued(ctx, event)
		}()
	}
}

// EmitAgentOutcome dispatches the event to all gate hooks.
func (r *Registry) EmitAgentOutcome(ctx context.Context, event AgentOutcomeEvent) {
	r.mu.RLock()
	hooks := r.gateHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnAgentOutcome", hook.Name())
			hook.OnAgentOutcome(ctx, event)
		}()
	}
}

// EmitPaymentVerified dispatches the event to all gate hooks.
func (r *Registry) EmitPaymentVerified(ctx context.Context, event PaymentVerifiedEvent) {
	r.mu.RLock()
	hooks := r.gateHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnPaymentVerified", hook.Name())
			hook.OnPaymentVerified(ctx, event)
		}()
	}
}

// ===============================================
// Challenge Hook Dispatchers
// ===============================================

// EmitChallengeServed dispatches the event to all challenge hooks.
func (r *Registry) EmitChallengeServed(ctx context.Context, event ChallengeServedEvent) {
	r.mu.RLock()
	hooks := r.challengeHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnChallengeServed", hook.Name())
			hook.OnChallengeServed(ctx, event)
		}()
	}
}

// EmitChallengeVerified dispatches the event to all challenge hooks.
func (r *Registry) EmitChallengeVerified(ctx context.Context, event ChallengeVerifiedEvent) {
	r.mu.RLock()
	hooks := r.challengeHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnChallengeVerified", hook.Name())
			hook.OnChallengeVerified(ctx, event)
		}()
	}
}

// ===============================================
// Rate-Limit Hook Dispatchers
// ===============================================

// EmitRateLimited dispatches the event to all rate-limit hooks.
func (r *Registry) EmitRateLimited(ctx context.Context, event RateLimitedEvent) {
	r.mu.RLock()
	hooks := r.rateLimitHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnRateLimited", hook.Name())
			hook.OnRateLimited(ctx, event)
		}()
	}
}

// ===============================================
// Error Recovery
// ===============================================

// recoverPanic recovers from panics in hook implementations.
// This ensures one bad hook doesn't crash the entire system.
func (r *Registry) recoverPanic(method, hookName string) {
	if err := recover(); err != nil {
		r.logger.Error().
			Str("hook", hookName).
			Str("method", method).
			Interface("panic", err).
			Msg("observability hook panicked (recovered)")
	}
}
