// Package challenge implements the browser-verification half of the gate:
// the signed cookie that marks a browser as verified, the short-lived nonce
// embedded in the challenge page, and the challenge page itself.
//
// Cookies and nonces share one wire shape, <unix ms>.<hex sig>. The cookie
// signs the bare timestamp; the nonce signs "nonce:"+timestamp so one can
// never be replayed as the other.
package challenge

import (
	"strconv"
	"strings"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/hmacutil"
)

const (
	// CookieName marks a browser that has passed the challenge.
	CookieName = "__agp_verified"

	// CookieMaxAge is the Max-Age attribute in seconds.
	CookieMaxAge = 86400

	cookieWindowMS = 86_400_000
	nonceWindowMS  = 300_000

	noncePayloadPrefix = "nonce:"
)

// Field limits for the verify form. Oversized values are truncated, never
// rejected, so a hostile client cannot learn anything from an error path.
const (
	MaxNonceLen    = 128
	MaxReturnToLen = 2048
	MaxFpLen       = 128
	MinFpLen       = 10
)

// MintCookieValue returns a cookie value bound to now.
func MintCookieValue(secret string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return ts + "." + hmacutil.Sign(secret, ts)
}

// ValidCookieValue reports whether value is a well-signed cookie no older
// than 24 h. Future-dated values are rejected.
func ValidCookieValue(secret, value string, now time.Time) bool {
	ts, sig, ok := splitSigned(value)
	if !ok {
		return false
	}
	if !hmacutil.Verify(secret, ts, sig) {
		return false
	}
	return ageWithin(ts, now, cookieWindowMS)
}

// MintNonce returns a nonce bound to now for embedding in the challenge page.
func MintNonce(secret string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return ts + "." + hmacutil.Sign(secret, noncePayloadPrefix+ts)
}

// ValidNonce reports whether n is well-signed and no older than 5 min.
func ValidNonce(secret, n string, now time.Time) bool {
	ts, _, ok := splitSigned(n)
	if !ok {
		return false
	}
	if !ValidNonceSignature(secret, n) {
		return false
	}
	return ageWithin(ts, now, nonceWindowMS)
}

// NonceExpired reports whether the nonce timestamp is older than 5 min.
// The verify handler checks expiry before the signature so the client gets
// the more helpful message when a stale page is re-submitted.
func NonceExpired(ts int64, now time.Time) bool {
	return now.UnixMilli()-ts > nonceWindowMS
}

// NonceTimestamp extracts the millisecond timestamp, failing on values
// without a separator or a decimal prefix. The signature half is not
// examined; a value with a parseable timestamp and a broken signature
// must reach the signature check, not fail here.
func NonceTimestamp(n string) (int64, bool) {
	ts, _, ok := strings.Cut(n, ".")
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// ValidNonceSignature checks only the HMAC, in constant time.
func ValidNonceSignature(secret, n string) bool {
	ts, sig, ok := splitSigned(n)
	if !ok {
		return false
	}
	return hmacutil.Verify(secret, noncePayloadPrefix+ts, sig)
}

// splitSigned cuts a <ts>.<sig> value at the first dot.
func splitSigned(value string) (ts, sig string, ok bool) {
	ts, sig, ok = strings.Cut(value, ".")
	if !ok || ts == "" || sig == "" {
		return "", "", false
	}
	return ts, sig, true
}

// ageWithin parses ts and checks 0 <= now-ts <= windowMS.
func ageWithin(ts string, now time.Time, windowMS int64) bool {
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := now.UnixMilli() - ms
	return age >= 0 && age <= windowMS
}

// SanitizeReturnTo rewrites any target that is not a local absolute path to
// "/". Protocol-relative "//host" targets count as external.
func SanitizeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

// Truncate caps s at limit bytes.
func Truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
