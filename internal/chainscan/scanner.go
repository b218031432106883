package chainscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
	"github.com/mattnewell-cam/AgentPayments/internal/rpcutil"
)

// Scanner checks whether a payment memo has landed on chain. One instance
// serves a single merchant wallet and mint; it keeps no scan state, so the
// gate's payment cache is the only thing preventing repeat scans.
type Scanner struct {
	client    *rpc.Client
	wallet    solana.PublicKey
	mint      solana.PublicKey
	network   string
	minAmount float64
	metrics   *metrics.Metrics
}

// Config holds scanner construction parameters. Zero values fall back to
// the network defaults.
type Config struct {
	Wallet     string
	Network    string // devnet | mainnet-beta
	RPCURL     string
	USDCMint   string
	MinPayment float64
}

// New builds a scanner for the given merchant wallet.
func New(cfg Config) (*Scanner, error) {
	wallet, err := solana.PublicKeyFromBase58(cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("chainscan: invalid wallet address %q: %w", cfg.Wallet, err)
	}

	mintStr := cfg.USDCMint
	if mintStr == "" {
		mintStr = DefaultUSDCMint(cfg.Network)
	}
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("chainscan: invalid USDC mint %q: %w", mintStr, err)
	}

	rpcURL := cfg.RPCURL
	if rpcURL == "" {
		rpcURL = DefaultRPCURL(cfg.Network)
	}

	minAmount := cfg.MinPayment
	if minAmount <= 0 {
		minAmount = MinPayment
	}

	return &Scanner{
		client:    rpc.New(rpcURL),
		wallet:    wallet,
		mint:      mint,
		network:   cfg.Network,
		minAmount: minAmount,
	}, nil
}

// WithMetrics attaches a metrics collector to the scanner.
func (s *Scanner) WithMetrics(m *metrics.Metrics) *Scanner {
	s.metrics = m
	return s
}

// CheckPayment reports whether some recent confirmed transaction to the
// merchant wallet (or one of its USDC token accounts) both carries
// memoText in a memo instruction and moves at least the minimum USDC
// amount. Failed transactions are skipped; the scan stops at the first
// qualifying transaction.
func (s *Scanner) CheckPayment(ctx context.Context, memoText string) (bool, error) {
	log := logger.FromContext(ctx)
	done := metrics.MeasureChainScan(s.metrics)

	addresses, err := s.scanAddresses(ctx)
	if err != nil {
		done("error")
		return false, fmt.Errorf("chainscan: token accounts: %w", err)
	}

	sigs, err := s.collectSignatures(ctx, addresses)
	if err != nil {
		done("error")
		return false, fmt.Errorf("chainscan: signatures: %w", err)
	}

	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		tx, err := s.fetchParsed(ctx, sig.Signature)
		if err != nil {
			log.Warn().
				Err(err).
				Str("signature", sig.Signature.String()).
				Msg("chainscan.transaction_fetch_failed")
			continue
		}
		if tx == nil {
			continue
		}
		if s.transactionPays(tx, memoText) {
			done("paid")
			log.Info().
				Str("signature", sig.Signature.String()).
				Str("network", s.network).
				Msg("chainscan.payment_found")
			return true, nil
		}
	}

	done("unpaid")
	return false, nil
}

// scanAddresses returns the wallet plus its token accounts for the mint.
// Payments land in an associated token account, not the wallet itself, so
// both must be scanned.
func (s *Scanner) scanAddresses(ctx context.Context) ([]solana.PublicKey, error) {
	out, err := rpcutil.WithRetry(ctx, func() (*rpc.GetTokenAccountsResult, error) {
		return s.client.GetTokenAccountsByOwner(
			ctx,
			s.wallet,
			&rpc.GetTokenAccountsConfig{Mint: &s.mint},
			&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
		)
	})
	if err != nil {
		return nil, err
	}

	addresses := []solana.PublicKey{s.wallet}
	for _, account := range out.Value {
		addresses = append(addresses, account.Pubkey)
	}
	return addresses, nil
}

// collectSignatures gathers recent signatures across all addresses,
// deduplicated, newest first per address.
func (s *Scanner) collectSignatures(ctx context.Context, addresses []solana.PublicKey) ([]*rpc.TransactionSignature, error) {
	limit := signatureLimit
	seen := make(map[solana.Signature]struct{})
	var all []*rpc.TransactionSignature

	for _, addr := range addresses {
		sigs, err := rpcutil.WithRetry(ctx, func() ([]*rpc.TransactionSignature, error) {
			return s.client.GetSignaturesForAddressWithOpts(ctx, addr, &rpc.GetSignaturesForAddressOpts{
				Limit: &limit,
			})
		})
		if err != nil {
			return nil, err
		}
		for _, sig := range sigs {
			if sig == nil {
				continue
			}
			if _, dup := seen[sig.Signature]; dup {
				continue
			}
			seen[sig.Signature] = struct{}{}
			all = append(all, sig)
		}
	}
	return all, nil
}

func (s *Scanner) fetchParsed(ctx context.Context, sig solana.Signature) (*rpc.GetParsedTransactionResult, error) {
	maxVersion := uint64(0)
	return rpcutil.WithRetry(ctx, func() (*rpc.GetParsedTransactionResult, error) {
		return s.client.GetParsedTransaction(ctx, sig, &rpc.GetParsedTransactionOpts{
			MaxSupportedTransactionVersion: &maxVersion,
		})
	})
}

// transactionPays reports whether tx pairs a memo instruction containing
// memoText with a qualifying USDC transfer. Both top-level and inner
// instructions count.
func (s *Scanner) transactionPays(tx *rpc.GetParsedTransactionResult, memoText string) bool {
	if tx.Transaction == nil {
		return false
	}

	hasMemo := false
	hasPayment := false
	for _, inst := range flattenInstructions(tx) {
		if inst == nil {
			continue
		}
		if isMemoInstruction(inst) && strings.Contains(memoValue(inst), memoText) {
			hasMemo = true
		}
		if amount, ok := parseTransfer(inst, s.mint); ok && amount >= s.minAmount {
			hasPayment = true
		}
	}
	return hasMemo && hasPayment
}

func flattenInstructions(tx *rpc.GetParsedTransactionResult) []*rpc.ParsedInstruction {
	all := append([]*rpc.ParsedInstruction(nil), tx.Transaction.Message.Instructions...)
	if tx.Meta != nil {
		for _, inner := range tx.Meta.InnerInstructions {
			all = append(all, inner.Instructions...)
		}
	}
	return all
}

func isMemoInstruction(inst *rpc.ParsedInstruction) bool {
	return inst.Program == "spl-memo" || inst.ProgramId.Equals(memo.ProgramID)
}

// memoValue returns the text of a parsed memo instruction. The RPC
// represents it as a bare JSON string; anything else falls back to the raw
// JSON so a contained memo still matches.
func memoValue(inst *rpc.ParsedInstruction) string {
	if inst.Parsed == nil {
		return ""
	}
	payload, err := inst.Parsed.MarshalJSON()
	if err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload, &text); err == nil {
		return text
	}
	return string(payload)
}

// parseTransfer extracts the USDC amount from a parsed spl-token transfer
// or transferChecked instruction. transferChecked names its mint and is
// rejected when it is not the expected one; plain transfer omits the mint
// and is accepted on amount alone.
func parseTransfer(inst *rpc.ParsedInstruction, mint solana.PublicKey) (float64, bool) {
	if inst.Parsed == nil || inst.Program != "spl-token" {
		return 0, false
	}

	info, instructionType, err := instructionInfo(inst)
	if err != nil {
		return 0, false
	}
	if instructionType != "transfer" && instructionType != "transferChecked" {
		return 0, false
	}
	if instructionType == "transferChecked" && stringValue(info["mint"]) != mint.String() {
		return 0, false
	}

	amount, err := transferAmount(info)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// instructionInfo splits a parsed instruction payload into its info map
// and type tag.
func instructionInfo(inst *rpc.ParsedInstruction) (map[string]interface{}, string, error) {
	payload, err := inst.Parsed.MarshalJSON()
	if err != nil {
		return nil, "", err
	}
	var decoded struct {
		Info map[string]interface{} `json:"info"`
		Type string                 `json:"type"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, "", err
	}
	if decoded.Info == nil {
		return nil, decoded.Type, errors.New("instruction info missing")
	}
	return decoded.Info, decoded.Type, nil
}

// transferAmount reads the UI amount from instruction info, preferring the
// tokenAmount structure and falling back to the raw base-unit amount.
func transferAmount(info map[string]interface{}) (float64, error) {
	if tokenAmount, ok := info["tokenAmount"].(map[string]interface{}); ok {
		if ui, ok := tokenAmount["uiAmount"].(float64); ok && ui > 0 {
			return ui, nil
		}
		if str := stringValue(tokenAmount["uiAmountString"]); str != "" {
			if f, err := strconv.ParseFloat(str, 64); err == nil {
				return f, nil
			}
		}
		if raw := stringValue(tokenAmount["amount"]); raw != "" {
			return rawAmount(raw)
		}
	}
	if raw := stringValue(info["amount"]); raw != "" {
		return rawAmount(raw)
	}
	return 0, errors.New("token amount missing")
}

// rawAmount converts a base-unit amount string using the USDC decimals.
func rawAmount(amount string) (float64, error) {
	val, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return 0, fmt.Errorf("invalid integer amount %q", amount)
	}
	result, _ := new(big.Float).Quo(
		new(big.Float).SetInt(val),
		big.NewFloat(math.Pow10(usdcDecimals)),
	).Float64()
	return result, nil
}

func stringValue(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
