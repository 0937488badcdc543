package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/mizzle/logger"
	"github.com/kbukum/mizzle/observability"
)

const (
	// DefaultCacheTTL is used when CacheConfig.TTL is zero.
	DefaultCacheTTL = 60 * time.Second
	// CacheKeyPrefix starts every key built by DefaultCacheKey.
	CacheKeyPrefix = "mizzle"
	// MetadataCacheHit is set on the Context to true or false by the Cache policy.
	MetadataCacheHit = "cache_hit"
)

// CacheConfig configures the Cache policy.
type CacheConfig struct {
	// Store holds cached results. Nil creates a private MemoryCacheStore.
	Store CacheStore
	// TTL bounds how long a result is served from cache.
	TTL time.Duration
	// KeyGenerator derives the cache key. Nil uses DefaultCacheKey.
	KeyGenerator func(mc *Context) string
	// Operations lists the cacheable operations. Nil uses DefaultCacheOperations.
	Operations []Operation
	// Logger receives store failures.
	Logger Logger
	// Runner executes the detached cache writes. Nil spawns a goroutine.
	Runner Runner
	// Metrics, when set, counts hits and misses.
	Metrics *observability.Metrics
}

// DefaultCacheOperations returns every operation whose name starts with
// "find", plus count.
func DefaultCacheOperations() []Operation {
	var ops []Operation
	for _, op := range allOperations {
		if strings.HasPrefix(string(op), "find") || op == OpCount {
			ops = append(ops, op)
		}
	}
	return ops
}

// DefaultCacheKey builds "mizzle:<collection>:<operation>:<filter JSON>:<options JSON>".
func DefaultCacheKey(mc *Context) string {
	return CacheKeyPrefix + ":" + mc.Collection + ":" + string(mc.Operation) + ":" +
		keyPart(mc.Filter) + ":" + keyPart(mc.Options)
}

func keyPart(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// Cache returns a read-through caching policy. A hit returns the stored
// value without calling next. A miss calls next and writes the result in
// the background; store failures are logged and never reach the caller.
//
// Nil results are never cached, so a lookup that found nothing always goes
// to storage. There is no invalidation: entries live until their TTL.
func Cache(cfg CacheConfig) Middleware {
	if cfg.Store == nil {
		cfg.Store = NewMemoryCacheStore()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultCacheKey
	}
	if cfg.Operations == nil {
		cfg.Operations = DefaultCacheOperations()
	}
	cacheable := newOperationSet(cfg.Operations)
	log := componentLogger(cfg.Logger, "cache")

	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		if !cacheable.has(mc.Operation) {
			return next(ctx)
		}

		key := cfg.KeyGenerator(mc)
		cached, found, err := cfg.Store.Get(ctx, key)
		if err != nil {
			fields := logger.MergeWithError(opFields(mc), err)
			fields[logger.FieldCacheKey] = key
			log.Warn("cache read failed", fields)
		}
		if err == nil && found && cached != nil {
			mc.Set(MetadataCacheHit, true)
			if cfg.Metrics != nil {
				cfg.Metrics.RecordCacheLookup(ctx, mc.Collection, string(mc.Operation), true)
			}
			return cached, nil
		}

		mc.Set(MetadataCacheHit, false)
		if cfg.Metrics != nil {
			cfg.Metrics.RecordCacheLookup(ctx, mc.Collection, string(mc.Operation), false)
		}

		result, err := next(ctx)
		if err != nil || result == nil {
			return result, err
		}

		fields := opFields(mc)
		fields[logger.FieldCacheKey] = key
		detach(ctx, cfg.Runner, log, "cache write", fields, func(ctx context.Context) error {
			return cfg.Store.Set(ctx, key, result, cfg.TTL)
		})
		return result, nil
	}
}
