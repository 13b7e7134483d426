package monitor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "compdb-tracer"

// Tracer wraps OpenTelemetry tracing for the generation pipeline.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer using the global TracerProvider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartSpan creates a new span and returns the updated context.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("compdb.%s", name),
		trace.WithAttributes(attrs...),
	)
	return ctx, span
}

// Common attribute keys for pipeline tracing.
var (
	AttrRunID      = attribute.Key("compdb.run.id")
	AttrTraceFiles = attribute.Key("compdb.trace_files")
	AttrRecords    = attribute.Key("compdb.records")
	AttrEntries    = attribute.Key("compdb.entries")
	AttrExitCode   = attribute.Key("compdb.build.exit_code")
)
