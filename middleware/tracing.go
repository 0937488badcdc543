package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mizzle/observability"
)

// Tracing returns a policy that wraps each call in a client span named
// "collection.operation". The span is put on the context passed to next, so
// inner links and the executor can attach children to it.
func Tracing(serviceName string) Middleware {
	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		ctx, span := observability.StartSpan(ctx, mc.Name(), trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String(observability.AttrServiceName, serviceName),
			attribute.String(observability.AttrCollection, mc.Collection),
			attribute.String(observability.AttrOperation, string(mc.Operation)),
		)
		if id := mc.RequestID(); id != "" {
			span.SetAttributes(attribute.String(observability.AttrRequestID, id))
		}

		result, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String(observability.AttrErrorCode, errorCode(err)))
			return result, err
		}
		span.SetStatus(codes.Ok, "")
		return result, nil
	}
}
