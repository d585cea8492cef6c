package adapters

import (
	"context"
	"time"

	"vehicle_inspection_backend/platform/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultCallTimeout bounds a cross-module call when the caller set no deadline.
const defaultCallTimeout = 5 * time.Second

// startCall opens a span for a cross-module call and applies the default
// timeout unless ctx already carries a deadline. The returned finish records
// err on the span and releases the context.
func startCall(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
	}
	ctx, span := tracing.Tracer("adapters").Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		cancel()
	}
}
