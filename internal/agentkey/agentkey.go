// Package agentkey implements the ag_ key format handed to automated
// clients and the gm_ payment memo derived from it.
//
// A key is self-certifying: ag_<random>_<sig> where random is 16 hex chars
// and sig is the first 16 hex chars of HMAC-SHA256(secret, random). The
// server keeps no key table; possession of a well-signed key is the whole
// credential, and payment state lives on chain under the derived memo.
package agentkey

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mattnewell-cam/AgentPayments/internal/hmacutil"
)

const (
	keyPrefix  = "ag"
	memoPrefix = "gm_"

	randomLen = 16
	sigLen    = 16

	// MaxKeyLen bounds attacker-supplied keys before any parsing.
	MaxKeyLen = 64
)

// Mint issues a new agent key under secret.
func Mint(secret string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomLen]
	sig := hmacutil.Sign(secret, random)[:sigLen]
	return keyPrefix + "_" + random + "_" + sig
}

// Valid reports whether key was minted by a server holding secret.
// Oversized, misshapen or foreign keys are invalid; comparison of the
// embedded signature is constant time.
func Valid(secret, key string) bool {
	if key == "" || len(key) > MaxKeyLen {
		return false
	}
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != keyPrefix {
		return false
	}
	random, sig := parts[1], parts[2]
	if len(random) != randomLen || len(sig) != sigLen {
		return false
	}
	want := hmacutil.Sign(secret, random)[:sigLen]
	return hmacutil.Equal(want, sig)
}

// Memo derives the on-chain payment memo for key. The same key always maps
// to the same memo, so the payer, the verify service and the gate agree on
// it without coordination.
func Memo(secret, key string) string {
	return memoPrefix + hmacutil.Sign(secret, key)[:sigLen]
}
