package examples

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mattnewell-cam/AgentPayments/internal/observability"
)

// LoggingHook logs all observability events using zerolog.
// Useful for debugging and development environments.
type LoggingHook struct {
	logger zerolog.Logger
}

// NewLoggingHook creates a hook that logs all events.
func NewLoggingHook(logger zerolog.Logger) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string {
	return "logging"
}

// ===============================================
// GateHook Implementation
// ===============================================

func (h *LoggingHook) OnRequestClassified(ctx context.Context, event observability.RequestClassifiedEvent) {
	h.logger.Debug().
		Str("decision", event.Decision).
		Str("method", event.Method).
		Str("path", event.Path).
		Str("ip", event.ClientIP).
		Msg("request classified")
}

func (h *LoggingHook) OnKeyIssued(ctx context.Context, event observability.KeyIssuedEvent) {
	h.logger.Info().
		Str("key", event.KeyPrefix).
		Str("memo", event.Memo).
		Str("path", event.Path).
		Str("ip", event.ClientIP).
		Msg("agent key issued")
}

func (h *LoggingHook) OnAgentOutcome(ctx context.Context, event observability.AgentOutcomeEvent) {
	log := h.logger.Debug()
	if event.Outcome == "verify_error" {
		log = h.logger.Warn()
	}

	log.Str("outcome", event.Outcome).
		Str("key", event.KeyPrefix).
		Str("path", event.Path).
		Int("status", event.Status).
		Msg("agent flow resolved")
}

func (h *LoggingHook) OnPaymentVerified(ctx context.Context, event observability.PaymentVerifiedEvent) {
	h.logger.Info().
		Str("key", event.KeyPrefix).
		Str("memo", event.Memo).
		Bool("cached", event.Cached).
		Str("path", event.Path).
		Str("ip", event.ClientIP).
		Str("ua", event.UserAgent).
		Msg("payment verified")
}

// ===============================================
// ChallengeHook Implementation
// ===============================================

func (h *LoggingHook) OnChallengeServed(ctx context.Context, event observability.ChallengeServedEvent) {
	h.logger.Debug().
		Str("path", event.Path).
		Str("ip", event.ClientIP).
		Msg("challenge page served")
}

func (h *LoggingHook) OnChallengeVerified(ctx context.Context, event observability.ChallengeVerifiedEvent) {
	log := h.logger.Info()
	if event.Outcome != "success" {
		log = h.logger.Warn()
	}

	log.Str("outcome", event.Outcome).
		Str("ip", event.ClientIP).
		Str("return_to", event.ReturnTo).
		Msg("challenge verified")
}

// ===============================================
// RateLimitHook Implementation
// ===============================================

func (h *LoggingHook) OnRateLimited(ctx context.Context, event observability.RateLimitedEvent) {
	h.logger.Warn().
		Str("scope", event.Scope).
		Str("ip", event.ClientIP).
		Msg("request rate limited")
}
