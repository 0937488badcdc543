// Package resilience provides the retry loop used by the pipeline's retry
// policy.
//
//	users, err := resilience.Retry(ctx, resilience.RetryConfig{
//	    MaxAttempts: 4,
//	    Backoff:     resilience.ExponentialBackoff(100*time.Millisecond, 2),
//	    RetryIf:     isTransient,
//	}, func() ([]User, error) {
//	    return repo.FindMany(ctx, filter)
//	})
package resilience
