// Package chainscan verifies USDC payments by scanning the merchant
// wallet's recent transactions directly over Solana RPC. It backs wallet
// mode, where the gate runs without an external verify service.
package chainscan

import "regexp"

// Networks the scanner knows endpoints and mints for.
const (
	NetworkDevnet  = "devnet"
	NetworkMainnet = "mainnet-beta"
)

// MinPayment is the USDC amount that activates an agent key.
const MinPayment = 0.01

const (
	usdcMintDevnet  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	usdcMintMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	rpcDevnet  = "https://api.devnet.solana.com"
	rpcMainnet = "https://api.mainnet-beta.solana.com"

	// signatureLimit bounds how far back one scan looks per address.
	signatureLimit = 50

	usdcDecimals = 6
)

var base58Re = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidWalletAddress reports whether addr is shaped like a Solana public
// key: 32-44 base58 characters.
func ValidWalletAddress(addr string) bool {
	return base58Re.MatchString(addr)
}

// DefaultRPCURL returns the public RPC endpoint for network. Anything
// other than devnet maps to mainnet; config validation normalises the
// network name before it reaches here.
func DefaultRPCURL(network string) string {
	if network == NetworkDevnet {
		return rpcDevnet
	}
	return rpcMainnet
}

// DefaultUSDCMint returns the canonical USDC mint for network.
func DefaultUSDCMint(network string) string {
	if network == NetworkDevnet {
		return usdcMintDevnet
	}
	return usdcMintMainnet
}
