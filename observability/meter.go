package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/kbukum/mizzle/logger"
)

// Operation status values used as the "status" attribute.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Instrument names.
const (
	MetricOperationTotal    = "mizzle.operation.total"
	MetricOperationDuration = "mizzle.operation.duration"
	MetricOperationActive   = "mizzle.operation.active"
	MetricErrorTotal        = "mizzle.error.total"
	MetricCacheLookups      = "mizzle.cache.lookups"
	MetricRetryTotal        = "mizzle.retry.total"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider with an OTLP HTTP
// exporter and installs it globally.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// newResource describes the service. It is schemaless so it never conflicts
// with the SDK's default resource schema.
func newResource(serviceName, serviceVersion, environment string) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String(AttrServiceName, serviceName),
		attribute.String("service.version", serviceVersion),
		attribute.String("environment", environment),
	)
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the pipeline policies.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	operationActive   metric.Int64UpDownCounter
	errorTotal        metric.Int64Counter
	cacheLookups      metric.Int64Counter
	retryTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operationTotal, err := meter.Int64Counter(MetricOperationTotal,
		metric.WithDescription("Total number of data-access operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricOperationTotal, err)
	}

	operationDuration, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("Duration of data-access operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricOperationDuration, err)
	}

	operationActive, err := meter.Int64UpDownCounter(MetricOperationActive,
		metric.WithDescription("Number of operations currently in the pipeline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricOperationActive, err)
	}

	errorTotal, err := meter.Int64Counter(MetricErrorTotal,
		metric.WithDescription("Total failed operations by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrorTotal, err)
	}

	cacheLookups, err := meter.Int64Counter(MetricCacheLookups,
		metric.WithDescription("Cache lookups by result (hit or miss)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCacheLookups, err)
	}

	retryTotal, err := meter.Int64Counter(MetricRetryTotal,
		metric.WithDescription("Total retry attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRetryTotal, err)
	}

	return &Metrics{
		operationTotal:    operationTotal,
		operationDuration: operationDuration,
		operationActive:   operationActive,
		errorTotal:        errorTotal,
		cacheLookups:      cacheLookups,
		retryTotal:        retryTotal,
	}, nil
}

func opAttrs(collection, operation string, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String(AttrCollection, collection),
		attribute.String(AttrOperation, operation),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

// RecordOperationStart increments the active operation count.
func (m *Metrics) RecordOperationStart(ctx context.Context, collection, operation string) {
	if m == nil {
		return
	}
	m.operationActive.Add(ctx, 1, opAttrs(collection, operation))
}

// RecordOperation decrements the active count and records a completed operation.
func (m *Metrics) RecordOperation(ctx context.Context, collection, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationActive.Add(ctx, -1, opAttrs(collection, operation))
	m.operationTotal.Add(ctx, 1, opAttrs(collection, operation, attribute.String(AttrStatus, status)))
	m.operationDuration.Record(ctx, duration.Seconds(), opAttrs(collection, operation))
}

// RecordError records a failed operation by error code.
func (m *Metrics) RecordError(ctx context.Context, collection, operation, code string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, opAttrs(collection, operation, attribute.String(AttrErrorCode, code)))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, collection, operation string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, opAttrs(collection, operation, attribute.String(AttrCacheResult, result)))
}

// RecordRetry counts one retry. attempt is the 1-based number of the attempt
// that failed.
func (m *Metrics) RecordRetry(ctx context.Context, collection, operation string, attempt int) {
	if m == nil {
		return
	}
	m.retryTotal.Add(ctx, 1, opAttrs(collection, operation, attribute.Int(AttrAttempt, attempt)))
}
