package examples

import (
	"context"

	"github.com/mattnewell-cam/AgentPayments/internal/observability"
)

// DataDogHook emits gate events to DataDog APM.
// This is a template implementation - requires DataDog SDK integration.
//
// To use this hook:
//  1. Import DataDog SDK: "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
//  2. Initialize DataDog tracer in main()
//  3. Register this hook with the observability registry
//
// Example integration:
//
//	import "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
//
//	func main() {
//	    tracer.Start(tracer.WithService("agentgate"))
//	    defer tracer.Stop()
//
//	    hook := examples.NewDataDogHook()
//	    registry.RegisterGateHook(hook)
//	}
type DataDogHook struct {
	// Add DataDog tracer reference here when integrating
	// tracer ddtrace.Tracer
}

// NewDataDogHook creates a hook that emits events to DataDog.
func NewDataDogHook() *DataDogHook {
	return &DataDogHook{}
}

func (h *DataDogHook) Name() string {
	return "datadog"
}

// ===============================================
// GateHook Implementation
// ===============================================

func (h *DataDogHook) OnRequestClassified(ctx context.Context, event observability.RequestClassifiedEvent) {
	// Example DataDog integration:
	//
	// span, _ := tracer.StartSpanFromContext(ctx, "gate.classify",
	//     tracer.Tag("gate.decision", event.Decision),
	//     tracer.Tag("http.method", event.Method),
	//     tracer.Tag("http.path", event.Path),
	// )
	// defer span.Finish()
}

func (h *DataDogHook) OnKeyIssued(ctx context.Context, event observability.KeyIssuedEvent) {
	// Example DataDog integration:
	//
	// span, _ := tracer.StartSpanFromContext(ctx, "gate.key_issued",
	//     tracer.Tag("gate.key_prefix", event.KeyPrefix),
	//     tracer.Tag("gate.memo", event.Memo),
	// )
	// defer span.Finish()
}

func (h *DataDogHook) OnAgentOutcome(ctx context.Context, event observability.AgentOutcomeEvent) {
	// Example DataDog integration:
	//
	// span, _ := tracer.StartSpanFromContext(ctx, "gate.agent_flow",
	//     tracer.Tag("gate.outcome", event.Outcome),
	//     tracer.Tag("http.status_code", event.Status),
	// )
	// defer span.Finish()
	//
	// if event.Outcome == "verify_error" {
	//     span.SetTag("error", true)
	// }
}

func (h *DataDogHook) OnPaymentVerified(ctx context.Context, event observability.PaymentVerifiedEvent) {
	// Example DataDog integration:
	//
	// span, _ := tracer.StartSpanFromContext(ctx, "gate.payment_verified",
	//     tracer.Tag("gate.key_prefix", event.KeyPrefix),
	//     tracer.Tag("gate.cached", event.Cached),
	// )
	// defer span.Finish()
}

// ===============================================
// ChallengeHook Implementation
// ===============================================

func (h *DataDogHook) OnChallengeServed(ctx context.Context, event observability.ChallengeServedEvent) {
	// Similar pattern - create span with challenge metadata
}

func (h *DataDogHook) OnChallengeVerified(ctx context.Context, event observability.ChallengeVerifiedEvent) {
	// Track challenge outcomes ("success", "failed", "expired", "invalid")
}

// ===============================================
// RateLimitHook Implementation
// ===============================================

func (h *DataDogHook) OnRateLimited(ctx context.Context, event observability.RateLimitedEvent) {
	// Track 429 rejections by scope for alerting
}
