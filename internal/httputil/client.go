// Package httputil builds the HTTP clients the gate uses for outbound
// calls (the verify service, Solana RPC).
package httputil

import (
	"net/http"
	"time"
)

// NewClient returns a client with a tuned transport. The gate polls the
// same one or two hosts for every agent request, so idle connections are
// kept warm: 100 idle total, 10 per host, 90s idle timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
