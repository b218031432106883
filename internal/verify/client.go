// Package verify talks to the hosted verify service: per-memo payment
// checks and the merchant config that tells the gate where payments go.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/chainscan"
	"github.com/mattnewell-cam/AgentPayments/internal/circuitbreaker"
	"github.com/mattnewell-cam/AgentPayments/internal/httputil"
	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
)

// DefaultTimeout bounds every call to the verify service.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a verify response is read. The
// service answers with tiny JSON objects; anything larger is wrong.
const maxResponseBytes = 1 << 20

// MerchantConfig tells the gate where payments for its API key land.
type MerchantConfig struct {
	WalletAddress string `json:"walletAddress"`
	Network       string `json:"network"` // devnet | mainnet-beta
}

// Client calls the verify service. It is safe for concurrent use.
type Client struct {
	verifyURL  string // always ends in /verify
	baseURL    string // verifyURL with the /verify suffix stripped
	apiKey     string
	httpClient *http.Client
	breaker    *circuitbreaker.Manager
	metrics    *metrics.Metrics
}

// Config holds client construction parameters.
type Config struct {
	// URL is the verify endpoint or the service base; a missing /verify
	// suffix is appended, matching the hosted SDKs.
	URL     string
	APIKey  string
	Timeout time.Duration

	// Breaker protects the service; nil gets the default breaker set.
	Breaker *circuitbreaker.Manager

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// NewClient builds a verify service client.
func NewClient(cfg Config) *Client {
	verifyURL := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(verifyURL, "/verify") {
		verifyURL += "/verify"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuitbreaker.NewManager(circuitbreaker.DefaultConfig())
	}

	return &Client{
		verifyURL:  verifyURL,
		baseURL:    strings.TrimSuffix(verifyURL, "/verify"),
		apiKey:     cfg.APIKey,
		httpClient: httputil.NewClient(timeout),
		breaker:    breaker,
		metrics:    cfg.Metrics,
	}
}

// APIKey returns the bearer credential the client authenticates with.
// Merchant config is cached per key, so the cache needs it.
func (c *Client) APIKey() string {
	return c.apiKey
}

// CheckPayment asks the verify service whether the payment for memo has
// been observed. Transport errors, non-2xx statuses and malformed bodies
// all return an error; the caller decides how to degrade.
func (c *Client) CheckPayment(ctx context.Context, memo string) (bool, error) {
	done := metrics.MeasureVerify(c.metrics)

	result, err := c.breaker.Execute(circuitbreaker.ServiceVerify, func() (interface{}, error) {
		return c.checkPayment(ctx, memo)
	})
	if err != nil {
		done("error")
		return false, err
	}

	paid := result.(bool)
	if paid {
		done("paid")
	} else {
		done("unpaid")
	}
	return paid, nil
}

func (c *Client) checkPayment(ctx context.Context, memo string) (bool, error) {
	endpoint := c.verifyURL + "?memo=" + url.QueryEscape(memo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return false, fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Paid bool `json:"paid"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return false, fmt.Errorf("verify: decode response: %w", err)
	}
	return payload.Paid, nil
}

// FetchMerchantConfig retrieves the wallet address and network bound to
// the client's API key. The returned wallet is validated; a merchant
// config with a bad address is an error, not a 402 the payer can never
// satisfy.
func (c *Client) FetchMerchantConfig(ctx context.Context) (MerchantConfig, error) {
	result, err := c.breaker.Execute(circuitbreaker.ServiceVerify, func() (interface{}, error) {
		return c.fetchMerchantConfig(ctx)
	})
	if c.metrics != nil {
		c.metrics.ObserveMerchantConfigFetch(err == nil)
	}
	if err != nil {
		return MerchantConfig{}, err
	}
	return result.(MerchantConfig), nil
}

func (c *Client) fetchMerchantConfig(ctx context.Context) (MerchantConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/merchants/me", nil)
	if err != nil {
		return MerchantConfig{}, fmt.Errorf("verify: build merchant request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return MerchantConfig{}, fmt.Errorf("verify: merchant config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return MerchantConfig{}, fmt.Errorf("verify: merchant config status %d", resp.StatusCode)
	}

	var merchant MerchantConfig
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&merchant); err != nil {
		return MerchantConfig{}, fmt.Errorf("verify: decode merchant config: %w", err)
	}

	if !chainscan.ValidWalletAddress(merchant.WalletAddress) {
		return MerchantConfig{}, fmt.Errorf("verify: merchant wallet %q is not a base58 Solana address", merchant.WalletAddress)
	}

	switch merchant.Network {
	case chainscan.NetworkDevnet, chainscan.NetworkMainnet:
	case "mainnet":
		merchant.Network = chainscan.NetworkMainnet
	case "":
		merchant.Network = chainscan.NetworkDevnet
	default:
		return MerchantConfig{}, fmt.Errorf("verify: merchant network %q unknown", merchant.Network)
	}

	return merchant, nil
}
