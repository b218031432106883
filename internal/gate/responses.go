package gate

import (
	"fmt"
	"strings"

	"github.com/mattnewell-cam/AgentPayments/internal/errors"
	"github.com/mattnewell-cam/AgentPayments/internal/verify"
)

// Response phrases. Agent SDKs and the hosted dashboard match on these
// strings, so they are frozen; reword only with a protocol version bump.
const (
	msgFirstIssuance = "Access requires a paid API key. A key has been generated for you below. Send a USDC payment with the provided memo to activate it, then retry your request with the X-Agent-Key header."
	msgUnpaidRetry   = "Key is valid but payment has not been verified yet."

	msgInvalidKey     = "Invalid API key. Keys must be issued by this server."
	detailsInvalidKey = "GET /.well-known/agent-access.json for access instructions."

	msgChallengeFailed  = "Challenge verification failed."
	msgChallengeExpired = "Challenge expired. Reload the page."
	msgChallengeInvalid = "Invalid challenge."

	msgRateLimited = "Too many verification attempts. Please wait and try again."

	msgNotConfigured = "Payment verification not configured."
	msgUnavailable   = "Payment verification unavailable."
)

// payment is the payment block of a 402 body.
type payment struct {
	Chain         string `json:"chain"`
	Network       string `json:"network"`
	Token         string `json:"token"`
	Amount        string `json:"amount"`
	WalletAddress string `json:"wallet_address"`
	Memo          string `json:"memo"`
	Instructions  string `json:"instructions,omitempty"`
}

// paymentRequired is the 402 envelope. Embedding errors.Body keeps the
// error and message fields first in the marshaled JSON, matching the wire
// shape the SDKs ship.
type paymentRequired struct {
	errors.Body
	YourKey string  `json:"your_key"`
	Payment payment `json:"payment"`
}

// paymentRequiredBody builds a 402 body for key and its memo. The first
// issuance carries human-readable payment instructions; unpaid retries for
// a known key do not.
func (s *Service) paymentRequiredBody(key, memo string, mc verify.MerchantConfig, firstIssuance bool) paymentRequired {
	message := msgUnpaidRetry
	if firstIssuance {
		message = msgFirstIssuance
	}

	p := payment{
		Chain:         "solana",
		Network:       mc.Network,
		Token:         "USDC",
		Amount:        s.minPayment,
		WalletAddress: mc.WalletAddress,
		Memo:          memo,
	}
	if firstIssuance {
		p.Instructions = instructionsText(s.minPayment, mc.Network, mc.WalletAddress, memo, key)
	}

	return paymentRequired{
		Body:    errors.New(errors.ErrCodePaymentRequired, message),
		YourKey: key,
		Payment: p,
	}
}

// instructionsText renders the payment walkthrough for a first 402. The
// network label drops the "-beta" suffix: payers read "Solana mainnet",
// the payment block still carries the RPC moniker "mainnet-beta".
func instructionsText(amount, network, wallet, memo, key string) string {
	label := strings.TrimSuffix(network, "-beta")
	return fmt.Sprintf(
		"Send %s USDC on Solana %s to %s with memo %q. Then include the header X-Agent-Key: %s on all subsequent requests.",
		amount, label, wallet, memo, key,
	)
}
