package oteltrace

import (
	"context"

	"github.com/teamcircuitbreakers/promosite/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "promosite"

type tracer struct{ t trace.Tracer }

// New returns a tracer backed by the global OTel tracer provider.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultTracerName
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// An SDK TracerProvider must be installed with otel.SetTracerProvider for spans to be exported;
// without one the global no-op provider is used.
