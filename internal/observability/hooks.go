package observability

import (
	"context"
	"time"
)

// Hook is the base interface for all observability hooks.
// Implementations can emit events to DataDog, New Relic, OpenTelemetry, etc.
type Hook interface {
	// Name returns the hook's identifier for logging/debugging
	Name() string
}

// GateHook receives events from request classification and the agent flow.
type GateHook interface {
	Hook

	// OnRequestClassified is called once per gated request with the
	// classifier's decision.
	OnRequestClassified(ctx context.Context, event RequestClassifiedEvent)

	// OnKeyIssued is called when a fresh agent key is minted for a 402.
	OnKeyIssued(ctx context.Context, event KeyIssuedEvent)

	// OnAgentOutcome is called when the agent flow reaches a terminal state.
	OnAgentOutcome(ctx context.Context, event AgentOutcomeEvent)

	// OnPaymentVerified is called when a key's payment is confirmed,
	// whether by the verify service, the on-chain scanner, or the cache.
	OnPaymentVerified(ctx context.Context, event PaymentVerifiedEvent)
}

// ChallengeHook receives events from the browser challenge flow.
type ChallengeHook interface {
	Hook

	// OnChallengeServed is called when a challenge page is rendered.
	OnChallengeServed(ctx context.Context, event ChallengeServedEvent)

	// OnChallengeVerified is called when a challenge POST is resolved,
	// successfully or not.
	OnChallengeVerified(ctx context.Context, event ChallengeVerifiedEvent)
}

// RateLimitHook receives events when the gate rejects a request for rate.
type RateLimitHook interface {
	Hook

	// OnRateLimited is called when a request is rejected with 429.
	OnRateLimited(ctx context.Context, event RateLimitedEvent)
}

// ===============================================
// Event Types
// ===============================================

// RequestClassifiedEvent is emitted once per request passing through the gate.
type RequestClassifiedEvent struct {
	Timestamp time.Time
	Decision  string // "public_path", "agent_with_key", "browser_no_cookie", ...
	Method    string
	Path      string
	ClientIP  string
}

// KeyIssuedEvent is emitted when the gate mints an agent key.
// KeyPrefix carries only the first 12 characters; full keys are
// credentials and never leave the response body.
type KeyIssuedEvent struct {
	Timestamp time.Time
	KeyPrefix string
	Memo      string
	Path      string
	ClientIP  string
}

// AgentOutcomeEvent is emitted when the agent flow reaches a terminal state.
type AgentOutcomeEvent struct {
	Timestamp time.Time
	Outcome   string // "issued", "invalid_key", "cache_hit", "paid", "unpaid", "verify_error", "unconfigured", "unavailable"
	KeyPrefix string
	Path      string
	Status    int // HTTP status sent, 0 on passthrough
}

// PaymentVerifiedEvent is emitted when a key is confirmed paid.
type PaymentVerifiedEvent struct {
	Timestamp time.Time
	KeyPrefix string
	Memo      string
	Cached    bool // true when served from the payment cache
	Path      string
	ClientIP  string
	UserAgent string
}

// ChallengeServedEvent is emitted when a challenge page is rendered for a
// browser without a valid cookie.
type ChallengeServedEvent struct {
	Timestamp time.Time
	Path      string
	ClientIP  string
}

// ChallengeVerifiedEvent is emitted when a challenge POST is resolved.
type ChallengeVerifiedEvent struct {
	Timestamp time.Time
	Outcome   string // "success", "failed", "expired", "invalid"
	ClientIP  string
	ReturnTo  string // sanitized redirect target, success only
}

// RateLimitedEvent is emitted when a request is rejected with 429.
type RateLimitedEvent struct {
	Timestamp time.Time
	Scope     string // "challenge" for the gate's limiter, "global" for the binary's
	ClientIP  string
}
