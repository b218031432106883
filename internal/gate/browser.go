package gate

import (
	"io"
	"net/http"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/challenge"
	"github.com/mattnewell-cam/AgentPayments/internal/errors"
	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
	"github.com/mattnewell-cam/AgentPayments/internal/ratelimit"
)

// serveChallengePage renders the interstitial for a browser without a
// valid cookie. Always 200: challenge pages are not errors, and no-store
// keeps stale nonces out of shared caches.
func (s *Service) serveChallengePage(w http.ResponseWriter, r *http.Request) {
	nonce := challenge.MintNonce(s.secret, time.Now())
	returnTo := r.URL.RequestURI()

	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge.Page(nonce, returnTo))

	if s.metrics != nil {
		s.metrics.ObserveChallengeServed()
	}
	if s.hooks != nil {
		s.hooks.EmitChallengeServed(r.Context(), observability.ChallengeServedEvent{
			Timestamp: time.Now(),
			Path:      r.URL.Path,
			ClientIP:  ratelimit.ClientIP(r),
		})
	}
}

// handleChallengeVerify resolves a posted challenge. Checks run cheapest
// first and each failure has its own phrase, so a stale page (expired
// nonce) reads differently from a forged one (bad signature). The rate
// limit counts every attempt, failed or not.
func (s *Service) handleChallengeVerify(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ClientIP(r)

	if !s.limiter.Permit(ip) {
		if s.metrics != nil {
			s.metrics.ObserveRateLimit("challenge")
		}
		if s.hooks != nil {
			s.hooks.EmitRateLimited(r.Context(), observability.RateLimitedEvent{
				Timestamp: time.Now(),
				Scope:     "challenge",
				ClientIP:  ip,
			})
		}
		errors.New(errors.ErrCodeRateLimited, msgRateLimited).WriteJSON(w)
		return
	}

	// A body that fails to parse yields empty fields, which fail the
	// checks below; no separate error path for it.
	_ = r.ParseForm()
	nonce := challenge.Truncate(r.PostFormValue("nonce"), challenge.MaxNonceLen)
	returnTo := r.PostFormValue("return_to")
	if returnTo == "" {
		returnTo = "/"
	}
	returnTo = challenge.Truncate(returnTo, challenge.MaxReturnToLen)
	fp := challenge.Truncate(r.PostFormValue("fp"), challenge.MaxFpLen)

	ts, ok := challenge.NonceTimestamp(nonce)
	if !ok || len(fp) < challenge.MinFpLen {
		s.challengeOutcome(r, "failed", ip, "")
		errors.New(errors.ErrCodeForbidden, msgChallengeFailed).WriteJSON(w)
		return
	}
	if challenge.NonceExpired(ts, time.Now()) {
		s.challengeOutcome(r, "expired", ip, "")
		errors.New(errors.ErrCodeForbidden, msgChallengeExpired).WriteJSON(w)
		return
	}
	if !challenge.ValidNonceSignature(s.secret, nonce) {
		s.challengeOutcome(r, "invalid", ip, "")
		errors.New(errors.ErrCodeForbidden, msgChallengeInvalid).WriteJSON(w)
		return
	}

	safe := challenge.SanitizeReturnTo(returnTo)
	http.SetCookie(w, s.verifiedCookie())
	s.challengeOutcome(r, "success", ip, safe)
	log := logger.FromContext(r.Context())
	log.Info().
		Str("ip", ip).
		Str("return_to", safe).
		Msg("gate.challenge_passed")
	http.Redirect(w, r, safe, http.StatusFound)
}

// verifiedCookie mints the browser verification cookie. Secure is dropped
// only when the operator opts into insecure cookies for plain-HTTP
// development.
func (s *Service) verifiedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     challenge.CookieName,
		Value:    challenge.MintCookieValue(s.secret, time.Now()),
		Path:     "/",
		MaxAge:   challenge.CookieMaxAge,
		HttpOnly: true,
		Secure:   !s.insecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// challengeOutcome records a challenge verification attempt.
func (s *Service) challengeOutcome(r *http.Request, outcome, ip, returnTo string) {
	if s.metrics != nil {
		s.metrics.ObserveChallengeVerify(outcome)
	}
	if s.hooks != nil {
		s.hooks.EmitChallengeVerified(r.Context(), observability.ChallengeVerifiedEvent{
			Timestamp: time.Now(),
			Outcome:   outcome,
			ClientIP:  ip,
			ReturnTo:  returnTo,
		})
	}
}
