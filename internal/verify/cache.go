package verify

import (
	"context"
	"sync"
	"time"

	"github.com/mattnewell-cam/AgentPayments/internal/cacheutil"
)

// ConfigCache caches merchant configs per API key. The first call blocks
// on the fetch and concurrent callers share it; with a zero TTL a
// successful fetch lives for the process lifetime.
type ConfigCache struct {
	client *Client
	ttl    time.Duration // 0 = never expires

	mu      sync.RWMutex
	entries map[string]cacheutil.CachedValue[MerchantConfig]
}

// NewConfigCache wraps client with a per-key merchant config cache.
func NewConfigCache(client *Client, ttl time.Duration) *ConfigCache {
	return &ConfigCache{
		client:  client,
		ttl:     ttl,
		entries: make(map[string]cacheutil.CachedValue[MerchantConfig]),
	}
}

// Merchant returns the merchant config for the client's API key, fetching
// it on first use.
func (cc *ConfigCache) Merchant(ctx context.Context) (MerchantConfig, error) {
	key := cc.client.APIKey()

	return cacheutil.ReadThrough(
		&cc.mu,
		func(now time.Time) (MerchantConfig, bool) {
			entry, ok := cc.entries[key]
			if !ok {
				return MerchantConfig{}, false
			}
			if cc.ttl > 0 && now.Sub(entry.FetchedAt) >= cc.ttl {
				return MerchantConfig{}, false
			}
			return entry.Value, true
		},
		func(now time.Time) (MerchantConfig, error) {
			merchant, err := cc.client.FetchMerchantConfig(ctx)
			if err != nil {
				return MerchantConfig{}, err
			}
			cc.entries[key] = cacheutil.CachedValue[MerchantConfig]{Value: merchant, FetchedAt: now}
			return merchant, nil
		},
	)
}
