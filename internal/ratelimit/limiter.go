// Package ratelimit guards the challenge verification endpoint against
// brute-force attempts and gives the standalone binary an outer per-IP
// request limiter.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of permits per window per client IP.
	DefaultLimit = 20

	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute

	sweepInterval = time.Minute
)

// Limiter is a fixed-window counter per client IP. The window is anchored
// at the first request, not aligned to the wall clock: an IP's first permit
// opens a window, further permits count against it, and the first permit
// after the window elapses opens a fresh one. Behavior at window
// boundaries is intentionally steppy; callers must not expect smoothing.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration

	stopSweep chan struct{}
	sweepDone chan struct{}
}

type bucket struct {
	windowStart time.Time
	count       int
}

// NewLimiter returns a limiter with the default 20 permits per minute.
func NewLimiter() *Limiter {
	return NewLimiterWithConfig(DefaultLimit, DefaultWindow)
}

// NewLimiterWithConfig returns a limiter with explicit bounds.
func NewLimiterWithConfig(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		buckets:   make(map[string]*bucket),
		limit:     limit,
		window:    window,
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Permit reports whether clientIP may proceed, counting this attempt.
func (l *Limiter) Permit(clientIP string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientIP]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.buckets[clientIP] = &bucket{windowStart: now, count: 1}
		return true
	}
	b.count++
	return b.count <= l.limit
}

// sweep discards buckets whose window has fully elapsed. Permit is correct
// without it; this only bounds memory for churning IPs.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	defer close(l.sweepDone)

	for {
		select {
		case <-l.stopSweep:
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for ip, b := range l.buckets {
				if now.Sub(b.windowStart) >= l.window {
					delete(l.buckets, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop terminates the background sweeper.
func (l *Limiter) Stop() {
	close(l.stopSweep)
	<-l.sweepDone
}

// ClientIP extracts the client address the limiter keys on: the first
// X-Forwarded-For hop when present, otherwise the transport peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
