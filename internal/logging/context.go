// internal/logging/context.go
package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts OpenTelemetry trace correlation data from ctx, if
// any span is active. chatarchive runs as a single-shot batch CLI with no
// per-request tenancy, so this is the only correlation the context carries.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return fields
	}
	sc := span.SpanContext()
	fields = append(fields,
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
	if sc.IsSampled() {
		fields = append(fields, zap.Bool("trace_sampled", true))
	}
	return fields
}
