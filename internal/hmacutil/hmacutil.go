// Package hmacutil holds the HMAC-SHA256 primitives every signed artifact
// in the gate is built from: agent keys, payment memos, cookies and nonces.
package hmacutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SentinelSecret is the placeholder shipped in examples and .env templates.
// Config validation refuses to run with it outside debug mode.
const SentinelSecret = "default-secret-change-me"

// Sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for payload and compares it to sig in
// constant time. Malformed input is simply not valid; Verify never errors.
func Verify(secret, payload, sig string) bool {
	return Equal(Sign(secret, payload), sig)
}

// Equal compares two signature strings in constant time.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RandomHex returns n hex characters drawn from crypto/rand.
func RandomHex(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; nothing
		// sensible to return.
		panic("hmacutil: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)[:n]
}

// IsSentinel reports whether secret is the placeholder value.
func IsSentinel(secret string) bool {
	return secret == SentinelSecret
}
