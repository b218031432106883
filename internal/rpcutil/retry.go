// Package rpcutil retries transient Solana RPC failures. The chain
// scanner issues bursts of getSignaturesForAddress / getParsedTransaction
// calls against public RPC endpoints, which throttle and flake routinely;
// every call goes through WithRetry.
package rpcutil

import (
	"context"
	"strings"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/logger"
)

const (
	maxAttempts = 4
	baseDelay   = 100 * time.Millisecond
)

// WithRetry runs op until it succeeds, fails permanently, or the attempt
// budget runs out. Backoff doubles per attempt (100ms, 200ms, 400ms) and
// context cancellation stops the loop immediately, returning the
// context's error if it fires mid-sleep.
func WithRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = op()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt == maxAttempts {
			return result, err
		}

		delay := baseDelay << uint(attempt-1)
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("retry_delay", delay).
			Msg("rpc.operation_retry")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, err
}

// retryable classifies by message text. The solana-go client surfaces
// both transport failures and JSON-RPC error payloads as plain errors,
// so string matching is the only signal available.
func retryable(err error) bool {
	msg := strings.ToLower(err.Error())

	for _, marker := range []string{
		// transport
		"connection refused", "connection reset", "timeout",
		"temporary failure", "network",
		// endpoint throttling
		"rate limit", "too many requests", "429", "throttle",
		// upstream 5xx
		"500", "502", "503", "504",
		"internal server error", "bad gateway",
		"service unavailable", "gateway timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
