// Package observability provides the OpenTelemetry metrics and span helpers
// used by the pipeline's metrics and tracing middlewares.
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("orders"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("orders"))
//	metrics.RecordOperation(ctx, "users", "findMany", observability.StatusOK, elapsed)
//
// Tracing uses the global tracer provider. No exporter is installed here, so
// spans are dropped unless the host application registers a provider:
//
//	ctx, span := observability.StartSpan(ctx, "users.findMany")
//	defer span.End()
package observability
