package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/strategy"
)

const tracerName = "claimtriage"

// SetupTracing installs a global tracer provider that writes finished
// spans as JSON to w. The returned function flushes and shuts it down.
func SetupTracing(w io.Writer) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(time.Second)))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Instrument wraps s so every ProcessClaim runs inside a span and feeds
// the decision metrics. m may be nil.
func Instrument(s strategy.Strategy, m *Metrics) strategy.Strategy {
	return &instrumented{inner: s, metrics: m}
}

type instrumented struct {
	inner   strategy.Strategy
	metrics *Metrics
}

func (i *instrumented) Name() string { return i.inner.Name() }

func (i *instrumented) Unwrap() strategy.Strategy { return i.inner }

func (i *instrumented) ProcessClaim(ctx context.Context, claim models.Claim, policy *models.Policy) models.Decision {
	// Resolve the tracer per call so a provider installed after
	// construction is picked up.
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Strategy.ProcessClaim",
		trace.WithAttributes(
			attribute.String("claim.id", claim.ID),
			attribute.String("claim.type", string(claim.Type)),
			attribute.Float64("claim.amount", claim.Amount),
			attribute.String("strategy.name", i.inner.Name()),
			attribute.Bool("policy.found", policy != nil),
		),
	)
	defer span.End()

	d := i.inner.ProcessClaim(ctx, claim, policy)

	span.SetAttributes(
		attribute.String("decision.id", d.ID),
		attribute.String("decision.severity", string(d.Severity)),
		attribute.String("decision.action", string(d.Action)),
		attribute.Bool("decision.success", d.Success),
		attribute.Bool("decision.cached", d.Cached),
	)
	if d.RiskScore != nil {
		span.SetAttributes(attribute.Float64("decision.risk_score", *d.RiskScore))
	}
	if !d.Success {
		span.SetStatus(codes.Error, d.Rationale)
	}

	i.metrics.ObserveDecision(d)
	return d
}
