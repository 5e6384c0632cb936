package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "boardroom"

// StartDeliberationSpan starts the root span for one deliberation run.
func StartDeliberationSpan(ctx context.Context, decisionID string, rounds int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "deliberation",
		trace.WithAttributes(
			attribute.String("decision.id", decisionID),
			attribute.Int("deliberation.rounds", rounds),
		),
	)
}

// StartPhaseSpan starts a span for one engine phase (collect, rebuttal,
// gates, aggregate, synthesize, persist).
func StartPhaseSpan(ctx context.Context, phase string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "phase."+phase)
}

// StartReviewerSpan starts a span for a single reviewer invocation.
func StartReviewerSpan(ctx context.Context, agent string, round int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "reviewer",
		trace.WithAttributes(
			attribute.String("reviewer.agent", agent),
			attribute.Int("reviewer.round", round),
		),
	)
}
