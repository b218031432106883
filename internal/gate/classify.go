package gate

import (
	"net/http"
	"strings"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/agentkey"
	"github.com/mattnewell-cam/AgentPayments/internal/challenge"
)

// verifyPath is the endpoint browsers post solved challenges to.
const verifyPath = "/__challenge/verify"

// Kind enumerates the classifier verdicts. Every gated request resolves to
// exactly one kind, and each kind has exactly one handler; no branch
// re-reads the URL or headers after classification.
type Kind int

const (
	// KindPublicPath passes through untouched: /robots.txt, /.well-known/
	// and the configured allowlist.
	KindPublicPath Kind = iota

	// KindChallengeVerify is a POST to /__challenge/verify.
	KindChallengeVerify

	// KindAgentNoKey is an automated client without an X-Agent-Key header.
	KindAgentNoKey

	// KindAgentWithKey is an automated client presenting a key, valid or not.
	KindAgentWithKey

	// KindBrowserCookie is a browser with a valid verification cookie.
	KindBrowserCookie

	// KindBrowserNoCookie is a browser that still has to solve the challenge.
	KindBrowserNoCookie
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindPublicPath:
		return "public_path"
	case KindChallengeVerify:
		return "challenge_verify"
	case KindAgentNoKey:
		return "agent_no_key"
	case KindAgentWithKey:
		return "agent_with_key"
	case KindBrowserCookie:
		return "browser_cookie"
	case KindBrowserNoCookie:
		return "browser_no_cookie"
	default:
		return "unknown"
	}
}

// Decision carries the classifier verdict plus the request values the
// handler for that kind needs, extracted once.
type Decision struct {
	Kind Kind

	// AgentKey is the X-Agent-Key header for KindAgentWithKey, already
	// capped at the key length limit.
	AgentKey string

	// Cookie is the validated cookie value for KindBrowserCookie.
	Cookie string
}

// classify applies the decision rules in strict order, first match wins:
// public path, challenge verify POST, browser test, then the agent or
// browser flow. A non-POST request to the verify path deliberately falls
// through and is classified like any other path.
func (s *Service) classify(r *http.Request) Decision {
	path := r.URL.Path

	if s.publicPath(path) {
		return Decision{Kind: KindPublicPath}
	}

	if r.Method == http.MethodPost && path == verifyPath {
		return Decision{Kind: KindChallengeVerify}
	}

	if !browserRequest(r) {
		key := r.Header.Get("X-Agent-Key")
		if key == "" {
			return Decision{Kind: KindAgentNoKey}
		}
		// Oversized keys are truncated, not rejected, so they fail
		// validation downstream like any other malformed key.
		return Decision{Kind: KindAgentWithKey, AgentKey: challenge.Truncate(key, agentkey.MaxKeyLen)}
	}

	if c, err := r.Cookie(challenge.CookieName); err == nil {
		if challenge.ValidCookieValue(s.secret, c.Value, time.Now()) {
			return Decision{Kind: KindBrowserCookie, Cookie: c.Value}
		}
	}

	return Decision{Kind: KindBrowserNoCookie}
}

// publicPath reports whether path bypasses the gate entirely. Built-in
// rules cover robots.txt and the .well-known tree; the allowlist adds
// exact matches only.
func (s *Service) publicPath(path string) bool {
	if path == "/robots.txt" || strings.HasPrefix(path, "/.well-known/") {
		return true
	}
	_, ok := s.publicPaths[path]
	return ok
}

// browserRequest applies the browser test: a request is browser-originated
// iff it carries Sec-Fetch-Mode or Sec-Fetch-Dest, with any value. Real
// browsers always send these on navigation; HTTP libraries never do.
func browserRequest(r *http.Request) bool {
	return r.Header.Get("Sec-Fetch-Mode") != "" || r.Header.Get("Sec-Fetch-Dest") != ""
}
