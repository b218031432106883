package gate

import (
	"net/http"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/agentkey"
	"github.com/mattnewell-cam/AgentPayments/internal/errors"
	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
	"github.com/mattnewell-cam/AgentPayments/internal/ratelimit"
	"github.com/mattnewell-cam/AgentPayments/pkg/responders"
)

// serveAgent runs the agent flow and reports whether the request may pass
// through. The state order is fixed: no key, invalid key, cache hit,
// unconfigured, then a live verification. A verification error is treated
// as unpaid, so a flaky verify service degrades to 402s rather than
// letting traffic through or hard-failing it.
func (s *Service) serveAgent(w http.ResponseWriter, r *http.Request, d Decision) bool {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if d.Kind == KindAgentNoKey {
		if s.merchant == nil {
			s.agentOutcome(r, "unconfigured", "", http.StatusInternalServerError)
			errors.New(errors.ErrCodeServerError, msgNotConfigured).WriteJSON(w)
			return false
		}
		mc, err := s.merchant.Merchant(ctx)
		if err != nil {
			log.Error().Err(err).Msg("gate.merchant_config_failed")
			s.agentOutcome(r, "unavailable", "", http.StatusInternalServerError)
			errors.New(errors.ErrCodeServerError, msgUnavailable).WriteJSON(w)
			return false
		}

		key := agentkey.Mint(s.secret)
		memo := agentkey.Memo(s.secret, key)
		if s.metrics != nil {
			s.metrics.ObserveKeyIssued()
		}
		if s.hooks != nil {
			s.hooks.EmitKeyIssued(ctx, observability.KeyIssuedEvent{
				Timestamp: time.Now(),
				KeyPrefix: logger.TruncateKey(key),
				Memo:      memo,
				Path:      r.URL.Path,
				ClientIP:  ratelimit.ClientIP(r),
			})
		}
		s.agentOutcome(r, "issued", key, http.StatusPaymentRequired)
		responders.JSON(w, http.StatusPaymentRequired, s.paymentRequiredBody(key, memo, mc, true))
		return false
	}

	key := d.AgentKey
	if !agentkey.Valid(s.secret, key) {
		s.agentOutcome(r, "invalid_key", key, http.StatusForbidden)
		errors.New(errors.ErrCodeForbidden, msgInvalidKey).WithDetails(detailsInvalidKey).WriteJSON(w)
		return false
	}

	if s.payments.Get(key) {
		if s.metrics != nil {
			s.metrics.ObservePaymentCache(true)
		}
		if s.hooks != nil {
			s.hooks.EmitPaymentVerified(ctx, observability.PaymentVerifiedEvent{
				Timestamp: time.Now(),
				KeyPrefix: logger.TruncateKey(key),
				Memo:      agentkey.Memo(s.secret, key),
				Cached:    true,
				Path:      r.URL.Path,
				ClientIP:  ratelimit.ClientIP(r),
				UserAgent: r.UserAgent(),
			})
		}
		s.agentOutcome(r, "cache_hit", key, 0)
		return true
	}
	if s.metrics != nil {
		s.metrics.ObservePaymentCache(false)
	}

	if s.verifier == nil {
		s.agentOutcome(r, "unconfigured", key, http.StatusInternalServerError)
		errors.New(errors.ErrCodeServerError, msgNotConfigured).WriteJSON(w)
		return false
	}

	memo := agentkey.Memo(s.secret, key)
	paid, verifyErr := s.verifier.CheckPayment(ctx, memo)
	if verifyErr != nil {
		log.Error().Err(verifyErr).
			Str("key", logger.TruncateKey(key)).
			Msg("gate.verify_failed")
		paid = false
	}

	if !paid {
		mc, err := s.merchant.Merchant(ctx)
		if err != nil {
			log.Error().Err(err).Msg("gate.merchant_config_failed")
			s.agentOutcome(r, "unavailable", key, http.StatusInternalServerError)
			errors.New(errors.ErrCodeServerError, msgUnavailable).WriteJSON(w)
			return false
		}
		outcome := "unpaid"
		if verifyErr != nil {
			outcome = "verify_error"
		}
		s.agentOutcome(r, outcome, key, http.StatusPaymentRequired)
		responders.JSON(w, http.StatusPaymentRequired, s.paymentRequiredBody(key, memo, mc, false))
		return false
	}

	s.payments.Set(key)
	log.Info().
		Str("key", logger.TruncateKey(key)).
		Str("ua", r.UserAgent()).
		Str("ip", ratelimit.ClientIP(r)).
		Str("path", r.URL.Path).
		Msg("gate.payment_verified")
	if s.hooks != nil {
		s.hooks.EmitPaymentVerified(ctx, observability.PaymentVerifiedEvent{
			Timestamp: time.Now(),
			KeyPrefix: logger.TruncateKey(key),
			Memo:      memo,
			Cached:    false,
			Path:      r.URL.Path,
			ClientIP:  ratelimit.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
	}
	s.agentOutcome(r, "paid", key, 0)
	return true
}

// agentOutcome records an agent-flow terminal state. Passthrough outcomes
// carry status 0.
func (s *Service) agentOutcome(r *http.Request, outcome, key string, status int) {
	if s.metrics != nil {
		s.metrics.ObserveAgentOutcome(outcome)
	}
	if s.hooks != nil {
		s.hooks.EmitAgentOutcome(r.Context(), observability.AgentOutcomeEvent{
			Timestamp: time.Now(),
			Outcome:   outcome,
			KeyPrefix: logger.TruncateKey(key),
			Path:      r.URL.Path,
			Status:    status,
		})
	}
}
