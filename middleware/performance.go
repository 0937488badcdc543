package middleware

import (
	"context"
	"time"

	"github.com/kbukum/mizzle/logger"
)

// DefaultSlowQueryThreshold is used when PerformanceConfig.SlowQueryThreshold is zero.
const DefaultSlowQueryThreshold = time.Second

// PerformanceConfig configures the Performance policy.
type PerformanceConfig struct {
	// SlowQueryThreshold marks calls taking longer as slow.
	SlowQueryThreshold time.Duration
	// OnSlowQuery replaces the default warning for slow calls.
	OnSlowQuery func(d time.Duration, mc *Context)
	// OnQueryComplete is called after every call, successful or not.
	OnQueryComplete func(d time.Duration, mc *Context)
	// Logger receives the default slow-query warning.
	Logger Logger
}

// Performance returns a policy that times each call with the monotonic clock.
// The hooks run after every call, including failed ones, and never alter
// the result or error.
func Performance(cfg PerformanceConfig) Middleware {
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultSlowQueryThreshold
	}
	log := componentLogger(cfg.Logger, "performance")

	return func(ctx context.Context, mc *Context, next Next) (result any, err error) {
		start := time.Now()
		defer func() {
			d := time.Since(start)
			if cfg.OnQueryComplete != nil {
				cfg.OnQueryComplete(d, mc)
			}
			if d <= cfg.SlowQueryThreshold {
				return
			}
			if cfg.OnSlowQuery != nil {
				cfg.OnSlowQuery(d, mc)
				return
			}
			fields := logger.MergeWithDuration(opFields(mc), d)
			fields["threshold_ms"] = cfg.SlowQueryThreshold.Milliseconds()
			log.Warn("slow query "+mc.Name(), fields)
		}()

		return next(ctx)
	}
}
