package metrics

import (
	"time"
)

// MeasureVerify wraps a verification call with timing instrumentation.
// Usage:
//
//	done := metrics.MeasureVerify(m)
//	// ... call the verify service ...
//	done("paid")
//
// All helpers here are nil-safe so callers never have to guard on an
// optional collector.
func MeasureVerify(m *Metrics) func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(result string) {
		m.ObserveVerifyCall(result, time.Since(start))
	}
}

// MeasureChainScan wraps an on-chain scan with timing instrumentation.
func MeasureChainScan(m *Metrics) func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(result string) {
		m.ObserveChainScan(result, time.Since(start))
	}
}
