package config

import (
	"fmt"
	"time"

	"github.com/kbukum/mizzle/middleware"
	"github.com/kbukum/mizzle/worker"
)

// PipelineConfig declares the process-wide policies. Each enabled policy is
// installed as a global middleware by pipeline.NewRegistryFromConfig.
type PipelineConfig struct {
	Logging     LoggingPolicyConfig     `yaml:"logging" mapstructure:"logging"`
	Performance PerformancePolicyConfig `yaml:"performance" mapstructure:"performance"`
	Retry       RetryPolicyConfig       `yaml:"retry" mapstructure:"retry"`
	Cache       CachePolicyConfig       `yaml:"cache" mapstructure:"cache"`
	Audit       AuditPolicyConfig       `yaml:"audit" mapstructure:"audit"`
	Validation  ValidationPolicyConfig  `yaml:"validation" mapstructure:"validation"`
	Metrics     MetricsPolicyConfig     `yaml:"metrics" mapstructure:"metrics"`
	Tracing     TracingPolicyConfig     `yaml:"tracing" mapstructure:"tracing"`
	Worker      worker.Config           `yaml:"worker" mapstructure:"worker"`
}

// LoggingPolicyConfig configures the logging policy.
type LoggingPolicyConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Level          string `yaml:"level" mapstructure:"level"`
	IncludeTimings *bool  `yaml:"include_timings" mapstructure:"include_timings"`
	IncludeDetails bool   `yaml:"include_details" mapstructure:"include_details"`
}

// PerformancePolicyConfig configures the performance policy.
type PerformancePolicyConfig struct {
	Enabled            bool          `yaml:"enabled" mapstructure:"enabled"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
}

// RetryPolicyConfig configures the retry policy. Backoff doubles from
// BaseDelay on every attempt. An explicit max_retries of 0 disables
// retrying; leaving it out uses the default of 3.
type RetryPolicyConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxRetries *int          `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	Operations []string      `yaml:"operations" mapstructure:"operations"`
}

// CachePolicyConfig configures the caching policy. The store itself is
// supplied in code (pipeline.WithCacheStore); an in-memory store is used
// otherwise.
type CachePolicyConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Operations []string      `yaml:"operations" mapstructure:"operations"`
}

// AuditPolicyConfig configures the audit policy.
type AuditPolicyConfig struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	IncludeReads bool     `yaml:"include_reads" mapstructure:"include_reads"`
	Operations   []string `yaml:"operations" mapstructure:"operations"`
}

// ValidationPolicyConfig configures the validation policy. A validator
// supplied with pipeline.WithValidator always installs it; otherwise Enabled
// installs the struct-tag validator with MapRules for map payloads.
type ValidationPolicyConfig struct {
	Enabled    bool              `yaml:"enabled" mapstructure:"enabled"`
	Operations []string          `yaml:"operations" mapstructure:"operations"`
	MapRules   map[string]string `yaml:"map_rules" mapstructure:"map_rules"`
}

// MetricsPolicyConfig enables the metrics policy when a meter is supplied.
type MetricsPolicyConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// TracingPolicyConfig configures the tracing policy.
type TracingPolicyConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// ApplyDefaults fills zero values with the policies' defaults.
func (c *PipelineConfig) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = string(middleware.LevelInfo)
	}
	if c.Logging.IncludeTimings == nil {
		timings := true
		c.Logging.IncludeTimings = &timings
	}
	if c.Performance.SlowQueryThreshold <= 0 {
		c.Performance.SlowQueryThreshold = middleware.DefaultSlowQueryThreshold
	}
	if c.Retry.MaxRetries == nil {
		retries := middleware.DefaultMaxRetries
		c.Retry.MaxRetries = &retries
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = middleware.DefaultRetryBaseDelay
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = middleware.DefaultCacheTTL
	}
	c.Worker.ApplyDefaults()
}

// Validate checks levels and operation names.
func (c *PipelineConfig) Validate() error {
	switch middleware.Level(c.Logging.Level) {
	case middleware.LevelDebug, middleware.LevelInfo, middleware.LevelWarn, middleware.LevelError:
	default:
		return fmt.Errorf("pipeline.logging.level must be one of [debug, info, warn, error] (got: %s)", c.Logging.Level)
	}
	if c.Retry.MaxRetries != nil && *c.Retry.MaxRetries < 0 {
		return fmt.Errorf("pipeline.retry.max_retries must not be negative (got: %d)", *c.Retry.MaxRetries)
	}

	lists := []struct {
		name string
		ops  []string
	}{
		{"retry", c.Retry.Operations},
		{"cache", c.Cache.Operations},
		{"audit", c.Audit.Operations},
		{"validation", c.Validation.Operations},
	}
	for _, l := range lists {
		if _, err := middleware.ParseOperations(l.ops); err != nil {
			return fmt.Errorf("pipeline.%s.operations: %w", l.name, err)
		}
	}

	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}
