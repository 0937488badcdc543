package pipeline

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/mizzle/config"
	"github.com/kbukum/mizzle/logger"
	"github.com/kbukum/mizzle/middleware"
	"github.com/kbukum/mizzle/observability"
	"github.com/kbukum/mizzle/resilience"
	"github.com/kbukum/mizzle/validation"
	"github.com/kbukum/mizzle/worker"
)

// BuildOption supplies the parts of a pipeline that cannot come from a
// config file.
type BuildOption func(*buildOptions)

type buildOptions struct {
	meter      metric.Meter
	tracing    string
	validator  middleware.Validator
	cacheStore middleware.CacheStore
	auditStore middleware.AuditStore
	runner     middleware.Runner
	log        middleware.Logger
}

// WithMeter records pipeline metrics on meter when metrics are enabled.
func WithMeter(m metric.Meter) BuildOption {
	return func(o *buildOptions) { o.meter = m }
}

// WithTracing enables the tracing policy for serviceName.
func WithTracing(serviceName string) BuildOption {
	return func(o *buildOptions) { o.tracing = serviceName }
}

// WithValidator installs the validation policy.
func WithValidator(v middleware.Validator) BuildOption {
	return func(o *buildOptions) { o.validator = v }
}

// WithCacheStore sets the store of the caching policy.
func WithCacheStore(s middleware.CacheStore) BuildOption {
	return func(o *buildOptions) { o.cacheStore = s }
}

// WithAuditStore sets the store of the audit policy.
func WithAuditStore(s middleware.AuditStore) BuildOption {
	return func(o *buildOptions) { o.auditStore = s }
}

// WithRunner sets the runner for detached writes. Without it the registry
// creates a worker pool from the config and owns it until Close.
func WithRunner(r middleware.Runner) BuildOption {
	return func(o *buildOptions) { o.runner = r }
}

// WithLogger sets the logger shared by all policies.
func WithLogger(l middleware.Logger) BuildOption {
	return func(o *buildOptions) { o.log = l }
}

// NewRegistryFromConfig creates a Registry whose global scope holds the
// policies enabled in cfg, outermost first:
//
//	tracing, metrics, logging, performance, validation, retry, cache, audit
func NewRegistryFromConfig(cfg config.PipelineConfig, opts ...BuildOption) (*Registry, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	log := o.log
	if log == nil {
		log = logger.Get("mizzle.pipeline")
	}

	if cfg.Tracing.Enabled || o.tracing != "" {
		name := o.tracing
		if name == "" {
			name = cfg.Tracing.ServiceName
		}
		reg.Use(middleware.Tracing(name))
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled && o.meter != nil {
		m, err := observability.NewMetrics(o.meter)
		if err != nil {
			return nil, fmt.Errorf("creating pipeline metrics: %w", err)
		}
		metrics = m
		reg.Use(middleware.Metrics(metrics))
	}

	if cfg.Logging.Enabled {
		reg.Use(middleware.Logging(middleware.LoggingConfig{
			Level:          middleware.ParseLevel(cfg.Logging.Level),
			Logger:         log,
			OmitTimings:    !*cfg.Logging.IncludeTimings,
			IncludeDetails: cfg.Logging.IncludeDetails,
		}))
	}

	if cfg.Performance.Enabled {
		reg.Use(middleware.Performance(middleware.PerformanceConfig{
			SlowQueryThreshold: cfg.Performance.SlowQueryThreshold,
			Logger:             log,
		}))
	}

	validator := o.validator
	if validator == nil && cfg.Validation.Enabled {
		validator = validation.ForPipeline(validation.WithMapRules(cfg.Validation.MapRules))
	}
	if validator != nil {
		ops, err := middleware.ParseOperations(cfg.Validation.Operations)
		if err != nil {
			return nil, fmt.Errorf("pipeline.validation.operations: %w", err)
		}
		reg.Use(middleware.Validation(middleware.ValidationConfig{
			Validator:  validator,
			Operations: ops,
		}))
	}

	if cfg.Retry.Enabled {
		ops, err := middleware.ParseOperations(cfg.Retry.Operations)
		if err != nil {
			return nil, fmt.Errorf("pipeline.retry.operations: %w", err)
		}
		reg.Use(middleware.Retry(middleware.RetryConfig{
			MaxRetries: *cfg.Retry.MaxRetries,
			Backoff:    resilience.ExponentialBackoff(cfg.Retry.BaseDelay, 2),
			Operations: ops,
			Logger:     log,
			Metrics:    metrics,
		}))
	}

	runner := o.runner
	if runner == nil && (cfg.Cache.Enabled || cfg.Audit.Enabled) {
		pool, err := worker.New("mizzle-detached", cfg.Worker)
		if err != nil {
			return nil, fmt.Errorf("creating detached worker pool: %w", err)
		}
		reg.pool = pool
		runner = pool
	}

	if cfg.Cache.Enabled {
		ops, err := middleware.ParseOperations(cfg.Cache.Operations)
		if err != nil {
			return nil, fmt.Errorf("pipeline.cache.operations: %w", err)
		}
		reg.Use(middleware.Cache(middleware.CacheConfig{
			Store:      o.cacheStore,
			TTL:        cfg.Cache.TTL,
			Operations: ops,
			Logger:     log,
			Runner:     runner,
			Metrics:    metrics,
		}))
	}

	if cfg.Audit.Enabled {
		ops, err := middleware.ParseOperations(cfg.Audit.Operations)
		if err != nil {
			return nil, fmt.Errorf("pipeline.audit.operations: %w", err)
		}
		reg.Use(middleware.Audit(middleware.AuditConfig{
			Store:        o.auditStore,
			IncludeReads: cfg.Audit.IncludeReads,
			Operations:   ops,
			Logger:       log,
			Runner:       runner,
		}))
	}

	return reg, nil
}
