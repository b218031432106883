package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattnewell-cam/AgentPayments/internal/observability"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GlobalEnabled {
		t.Error("Expected outer limiter to be opt-in")
	}
	if cfg.GlobalLimit != 600 {
		t.Errorf("Expected global limit 600, got %d", cfg.GlobalLimit)
	}
	if cfg.GlobalWindow != time.Minute {
		t.Errorf("Expected 1 minute window, got %v", cfg.GlobalWindow)
	}
}

func TestGlobalLimiter_Disabled(t *testing.T) {
	cfg := Config{GlobalEnabled: false}
	limiter := GlobalLimiter(cfg)

	handler := limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Should allow unlimited requests when disabled
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestGlobalLimiter_EnforcesLimit(t *testing.T) {
	cfg := Config{
		GlobalEnabled: true,
		GlobalLimit:   5,
		GlobalWindow:  1 * time.Minute,
	}
	limiter := GlobalLimiter(cfg)

	handler := limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 5 requests should succeed
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i, w.Code)
		}
	}

	// 6th request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after limit exceeded, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header to be set")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON body, got Content-Type %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"rate_limited"`) {
		t.Errorf("Expected rate_limited error code, got %s", w.Body.String())
	}
}

type recordingRateLimitHook struct {
	mu     sync.Mutex
	events []observability.RateLimitedEvent
}

func (h *recordingRateLimitHook) Name() string { return "recording" }

func (h *recordingRateLimitHook) OnRateLimited(ctx context.Context, e observability.RateLimitedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func TestGlobalLimiter_EmitsHookEvents(t *testing.T) {
	hook := &recordingRateLimitHook{}
	registry := observability.NewRegistry(zerolog.Nop())
	registry.RegisterRateLimitHook(hook)

	limiter := GlobalLimiter(Config{
		GlobalEnabled: true,
		GlobalLimit:   1,
		GlobalWindow:  1 * time.Minute,
		Hooks:         registry,
	})
	handler := limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/data", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.events) != 1 {
		t.Fatalf("Expected 1 rate-limit event, got %d", len(hook.events))
	}
	if hook.events[0].Scope != "global" {
		t.Errorf("Expected scope global, got %q", hook.events[0].Scope)
	}
	if hook.events[0].ClientIP != "203.0.113.9" {
		t.Errorf("Expected client IP 203.0.113.9, got %q", hook.events[0].ClientIP)
	}
}
