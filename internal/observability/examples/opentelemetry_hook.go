package examples

import (
	"context"

	"github.com/mattnewell-cam/AgentPayments/internal/observability"
)

// OpenTelemetryHook emits gate events to OpenTelemetry traces.
// This is a template implementation - requires OpenTelemetry SDK integration.
//
// To use this hook:
//  1. Import OpenTelemetry SDK: "go.opentelemetry.io/otel"
//  2. Initialize OTEL tracer provider in main()
//  3. Register this hook with the observability registry
//
// Example integration:
//
//	import (
//	    "go.opentelemetry.io/otel"
//	    "go.opentelemetry.io/otel/exporters/jaeger"
//	    "go.opentelemetry.io/otel/sdk/trace"
//	)
//
//	func main() {
//	    exporter, _ := jaeger.New(jaeger.WithCollectorEndpoint())
//	    tp := trace.NewTracerProvider(trace.WithBatcher(exporter))
//	    otel.SetTracerProvider(tp)
//
//	    hook := examples.NewOpenTelemetryHook()
//	    registry.RegisterGateHook(hook)
//	}
type OpenTelemetryHook struct {
	// Add OTEL tracer reference here when integrating
	// tracer trace.Tracer
}

// NewOpenTelemetryHook creates a hook that emits events to OpenTelemetry.
func NewOpenTelemetryHook() *OpenTelemetryHook {
	return &OpenTelemetryHook{}
}

func (h *OpenTelemetryHook) Name() string {
	return "opentelemetry"
}

// ===============================================
// GateHook Implementation
// ===============================================

func (h *OpenTelemetryHook) OnRequestClassified(ctx context.Context, event observability.RequestClassifiedEvent) {
	// Example OpenTelemetry integration:
	//
	// _, span := h.tracer.Start(ctx, "gate.classify",
	//     trace.WithAttributes(
	//         attribute.String("gate.decision", event.Decision),
	//         attribute.String("http.method", event.Method),
	//         attribute.String("http.path", event.Path),
	//     ),
	// )
	// defer span.End()
}

func (h *OpenTelemetryHook) OnKeyIssued(ctx context.Context, event observability.KeyIssuedEvent) {
	// Example OpenTelemetry integration:
	//
	// _, span := h.tracer.Start(ctx, "gate.key_issued",
	//     trace.WithAttributes(
	//         attribute.String("gate.key_prefix", event.KeyPrefix),
	//         attribute.String("gate.memo", event.Memo),
	//     ),
	// )
	// defer span.End()
}

func (h *OpenTelemetryHook) OnAgentOutcome(ctx context.Context, event observability.AgentOutcomeEvent) {
	// Example OpenTelemetry integration:
	//
	// _, span := h.tracer.Start(ctx, "gate.agent_flow",
	//     trace.WithAttributes(
	//         attribute.String("gate.outcome", event.Outcome),
	//         attribute.Int("http.status_code", event.Status),
	//     ),
	// )
	// defer span.End()
	//
	// if event.Outcome == "verify_error" {
	//     span.SetStatus(codes.Error, "payment verification failed")
	// }
}

func (h *OpenTelemetryHook) OnPaymentVerified(ctx context.Context, event observability.PaymentVerifiedEvent) {
	// Example OpenTelemetry integration:
	//
	// _, span := h.tracer.Start(ctx, "gate.payment_verified",
	//     trace.WithAttributes(
	//         attribute.String("gate.key_prefix", event.KeyPrefix),
	//         attribute.Bool("gate.cached", event.Cached),
	//     ),
	// )
	// defer span.End()
}

// ===============================================
// ChallengeHook Implementation
// ===============================================

func (h *OpenTelemetryHook) OnChallengeServed(ctx context.Context, event observability.ChallengeServedEvent) {
	// Similar pattern - start span with challenge metadata
}

func (h *OpenTelemetryHook) OnChallengeVerified(ctx context.Context, event observability.ChallengeVerifiedEvent) {
	// Track challenge outcomes ("success", "failed", "expired", "invalid")
}

// ===============================================
// RateLimitHook Implementation
// ===============================================

func (h *OpenTelemetryHook) OnRateLimited(ctx context.Context, event observability.RateLimitedEvent) {
	// Track 429 rejections by scope
}
