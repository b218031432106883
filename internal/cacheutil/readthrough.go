// Package cacheutil holds the read-through cache helper behind the
// merchant config cache.
package cacheutil

import (
	"sync"
	"time"
)

// CachedValue pairs a cached value with the time it was fetched, so
// callers can apply their own TTL policy in checkCache.
type CachedValue[T any] struct {
	Value     T
	FetchedAt time.Time
}

// ReadThrough serves a value from cache or fetches it on a miss, with
// double-checked locking: checkCache runs under RLock on the fast path,
// and again under the write lock before fetchAndCache, so concurrent
// callers racing on a cold key produce a single fetch.
//
// checkCache receives the time to judge expiry against; after the write
// lock is taken the time is re-read so a value cached by a racing caller
// is not mistaken for expired. Failed fetches cache nothing, so the next
// caller retries.
func ReadThrough[T any](
	mu *sync.RWMutex,
	checkCache func(now time.Time) (T, bool),
	fetchAndCache func(now time.Time) (T, error),
) (T, error) {
	now := time.Now()
	mu.RLock()
	if value, ok := checkCache(now); ok {
		mu.RUnlock()
		return value, nil
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if value, ok := checkCache(time.Now()); ok {
		return value, nil
	}

	return fetchAndCache(time.Now())
}
