package gate

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/mattnewell-cam/AgentPayments/internal/agentkey"
	"github.com/mattnewell-cam/AgentPayments/internal/config"
	"github.com/mattnewell-cam/AgentPayments/internal/metrics"
	"github.com/mattnewell-cam/AgentPayments/internal/observability"
	"github.com/mattnewell-cam/AgentPayments/internal/paycache"
	"github.com/mattnewell-cam/AgentPayments/internal/ratelimit"
)

// recordingHook captures gate and challenge events for assertions.
type recordingHook struct {
	mu         sync.Mutex
	classified []observability.RequestClassifiedEvent
	issued     []observability.KeyIssuedEvent
	outcomes   []observability.AgentOutcomeEvent
	verified   []observability.PaymentVerifiedEvent
	challenges []observability.ChallengeVerifiedEvent
}

func (h *recordingHook) Name() string { return "recording" }

func (h *recordingHook) OnRequestClassified(ctx context.Context, e observability.RequestClassifiedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classified = append(h.classified, e)
}

func (h *recordingHook) OnKeyIssued(ctx context.Context, e observability.KeyIssuedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issued = append(h.issued, e)
}

func (h *recordingHook) OnAgentOutcome(ctx context.Context, e observability.AgentOutcomeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, e)
}

func (h *recordingHook) OnPaymentVerified(ctx context.Context, e observability.PaymentVerifiedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verified = append(h.verified, e)
}

func (h *recordingHook) OnChallengeServed(ctx context.Context, e observability.ChallengeServedEvent) {}

func (h *recordingHook) OnChallengeVerified(ctx context.Context, e observability.ChallengeVerifiedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.challenges = append(h.challenges, e)
}

// newInstrumentedGate wires a gate with a fresh metrics collector and a
// recording hook, the way the App assembles it.
func newInstrumentedGate(t *testing.T, verifier PaymentVerifier, merchant MerchantSource) (*Service, *metrics.Metrics, *recordingHook) {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	registry := observability.NewRegistry(zerolog.Nop())
	hook := &recordingHook{}
	registry.RegisterGateHook(hook)
	registry.RegisterChallengeHook(hook)

	payments := paycache.NewWithConfig(100, time.Minute)
	t.Cleanup(payments.Stop)
	limiter := ratelimit.NewLimiterWithConfig(20, time.Minute)
	t.Cleanup(limiter.Stop)

	cfg := config.GateConfig{ChallengeSecret: testSecret, MinPayment: "0.01"}
	svc, err := NewService(cfg, verifier, merchant, payments, limiter, m, registry)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, m, hook
}

func TestGateRecordsDecisions(t *testing.T) {
	svc, m, hook := newInstrumentedGate(t, &stubVerifier{}, devnetMerchant())

	serveGate(svc, agentRequest("/robots.txt", ""))
	serveGate(svc, agentRequest("/data", ""))
	serveGate(svc, browserRequestTo("/page"))

	for label, want := range map[string]float64{
		"public_path":       1,
		"agent_no_key":      1,
		"browser_no_cookie": 1,
	} {
		if got := promtest.ToFloat64(m.RequestsTotal.WithLabelValues(label)); got != want {
			t.Errorf("Expected %v %s decisions, got %v", want, label, got)
		}
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.classified) != 3 {
		t.Fatalf("Expected 3 classified events, got %d", len(hook.classified))
	}
	if hook.classified[1].Decision != "agent_no_key" || hook.classified[1].Path != "/data" {
		t.Fatalf("Expected the second event to describe the agent request, got %+v", hook.classified[1])
	}
}

func TestGateRecordsIssuance(t *testing.T) {
	svc, m, hook := newInstrumentedGate(t, &stubVerifier{}, devnetMerchant())

	rec, _ := serveGate(svc, agentRequest("/data", ""))
	body := decodeJSON(t, rec)
	yourKey := body["your_key"].(string)

	if got := promtest.ToFloat64(m.KeysIssuedTotal); got != 1 {
		t.Fatalf("Expected 1 issued key, got %v", got)
	}
	if got := promtest.ToFloat64(m.AgentOutcomesTotal.WithLabelValues("issued")); got != 1 {
		t.Fatalf("Expected 1 issued outcome, got %v", got)
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.issued) != 1 {
		t.Fatalf("Expected 1 issuance event, got %d", len(hook.issued))
	}
	e := hook.issued[0]
	if e.KeyPrefix != yourKey[:12]+"..." {
		t.Fatalf("Expected the redacted key prefix, got %q", e.KeyPrefix)
	}
	if e.KeyPrefix == yourKey {
		t.Fatal("Expected the full key to stay out of events")
	}
	if e.Memo != agentkey.Memo(testSecret, yourKey) {
		t.Fatalf("Expected the derived memo, got %q", e.Memo)
	}
}

func TestGateRecordsPaymentAndCache(t *testing.T) {
	key := agentkey.Mint(testSecret)
	memo := agentkey.Memo(testSecret, key)
	verifier := &stubVerifier{paid: map[string]bool{memo: true}}
	svc, m, hook := newInstrumentedGate(t, verifier, devnetMerchant())

	serveGate(svc, agentRequest("/data", key))
	serveGate(svc, agentRequest("/data", key))

	if got := promtest.ToFloat64(m.PaymentCacheMissesTotal); got != 1 {
		t.Errorf("Expected 1 cache miss, got %v", got)
	}
	if got := promtest.ToFloat64(m.PaymentCacheHitsTotal); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}
	if got := promtest.ToFloat64(m.AgentOutcomesTotal.WithLabelValues("paid")); got != 1 {
		t.Errorf("Expected 1 paid outcome, got %v", got)
	}
	if got := promtest.ToFloat64(m.AgentOutcomesTotal.WithLabelValues("cache_hit")); got != 1 {
		t.Errorf("Expected 1 cache_hit outcome, got %v", got)
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.verified) != 2 {
		t.Fatalf("Expected 2 payment events, got %d", len(hook.verified))
	}
	if hook.verified[0].Cached || !hook.verified[1].Cached {
		t.Fatalf("Expected a live verification then a cached one, got %+v", hook.verified)
	}
}

func TestGateRecordsChallengeOutcomes(t *testing.T) {
	svc, m, hook := newInstrumentedGate(t, nil, nil)

	serveGate(svc, verifyPost(solvedForm(testSecret, "/dest")))
	serveGate(svc, verifyPost(url.Values{"nonce": {"bogus"}, "fp": {"x"}}))

	if got := promtest.ToFloat64(m.ChallengeVerifyTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := promtest.ToFloat64(m.ChallengeVerifyTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.challenges) != 2 {
		t.Fatalf("Expected 2 challenge events, got %d", len(hook.challenges))
	}
	if hook.challenges[0].Outcome != "success" || hook.challenges[0].ReturnTo != "/dest" {
		t.Fatalf("Expected a success event carrying the target, got %+v", hook.challenges[0])
	}
	if hook.challenges[1].Outcome != "failed" {
		t.Fatalf("Expected a failed event, got %+v", hook.challenges[1])
	}
}

func TestGateRecordsRateLimit(t *testing.T) {
	svc, m, _ := newInstrumentedGate(t, nil, nil)

	for i := 0; i < 21; i++ {
		r := verifyPost(url.Values{"nonce": {"bogus"}, "fp": {"x"}})
		r.RemoteAddr = "203.0.113.77:1000"
		serveGate(svc, r)
	}

	if got := promtest.ToFloat64(m.RateLimitHitsTotal.WithLabelValues("challenge")); got != 1 {
		t.Fatalf("Expected 1 rate-limit hit, got %v", got)
	}
}

func TestGateConcurrentCachedAgents(t *testing.T) {
	key := agentkey.Mint(testSecret)
	memo := agentkey.Memo(testSecret, key)
	verifier := &stubVerifier{paid: map[string]bool{memo: true}}
	svc := newGate(t, config.GateConfig{}, verifier, devnetMerchant())

	// Prime the cache.
	serveGate(svc, agentRequest("/data", key))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, passed := serveGate(svc, agentRequest("/data", key)); !passed {
				t.Error("Expected a cached key to pass through")
			}
		}()
	}
	wg.Wait()

	if verifier.callCount() != 1 {
		t.Fatalf("Expected the cache to absorb concurrent requests, got %d verify calls", verifier.callCount())
	}
}
