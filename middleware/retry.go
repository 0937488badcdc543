package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/mizzle/logger"
	"github.com/kbukum/mizzle/observability"
	"github.com/kbukum/mizzle/resilience"
)

const (
	// DefaultMaxRetries is the MaxRetries of DefaultRetryConfig.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is the first wait of DefaultBackoff.
	DefaultRetryBaseDelay = 100 * time.Millisecond
)

var transientMarkers = []string{"network", "timeout", "econnreset", "enotfound"}

// DefaultRetryIf reports whether the error message mentions a transient
// network condition.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// DefaultBackoff waits 100ms, 200ms, 400ms, ... for attempts 0, 1, 2, ...
var DefaultBackoff = resilience.ExponentialBackoff(DefaultRetryBaseDelay, 2)

// RetryConfig configures the Retry policy.
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the first call. Zero
	// disables retrying; negative values are treated as zero.
	MaxRetries int
	// Backoff returns the wait before re-attempt attempt+1 (attempt is zero-based).
	Backoff func(attempt int) time.Duration
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
	// Operations limits retrying to the listed operations. Nil retries all.
	Operations []Operation
	// Logger receives one warning per retry.
	Logger Logger
	// Metrics, when set, counts retries.
	Metrics *observability.Metrics
}

// DefaultRetryConfig returns three retries with DefaultBackoff and
// DefaultRetryIf.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
		RetryIf:    DefaultRetryIf,
	}
}

// Retry returns a policy that re-invokes next while it fails with an error
// accepted by RetryIf, up to MaxRetries+1 calls in total. When attempts run
// out, or the error is not retryable, the last error is returned unchanged.
func Retry(cfg RetryConfig) Middleware {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	var only operationSet
	if cfg.Operations != nil {
		only = newOperationSet(cfg.Operations)
	}
	log := componentLogger(cfg.Logger, "retry")
	maxAttempts := cfg.MaxRetries + 1

	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		if only != nil && !only.has(mc.Operation) {
			return next(ctx)
		}

		return resilience.Retry(ctx, resilience.RetryConfig{
			MaxAttempts: maxAttempts,
			Backoff:     cfg.Backoff,
			RetryIf:     cfg.RetryIf,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				fields := logger.MergeWithError(opFields(mc), err)
				fields[logger.FieldAttempt] = attempt
				fields["max_attempts"] = maxAttempts
				fields["backoff_ms"] = backoff.Milliseconds()
				log.Warn("retrying "+mc.Name(), fields)
				cfg.Metrics.RecordRetry(ctx, mc.Collection, string(mc.Operation), attempt)
			},
		}, func() (any, error) {
			return next(ctx)
		})
	}
}
