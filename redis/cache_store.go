package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mizzle/middleware"
)

// CacheStore is a middleware.CacheStore backed by Redis. Values are stored as
// JSON, so they must be JSON-serializable.
type CacheStore struct {
	rdb       goredis.UniversalClient
	keyPrefix string
}

// NewCacheStore creates a store on client. All keys are prefixed with
// keyPrefix followed by a colon separator.
func NewCacheStore(client *Client, keyPrefix string) *CacheStore {
	return NewCacheStoreFromClient(client.Unwrap(), keyPrefix)
}

// NewCacheStoreFromClient creates a store on an existing go-redis client
// (single node, cluster or sentinel).
func NewCacheStoreFromClient(rdb goredis.UniversalClient, keyPrefix string) *CacheStore {
	return &CacheStore{rdb: rdb, keyPrefix: keyPrefix}
}

func (s *CacheStore) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Get decodes the JSON stored under key. Missing or expired keys report
// found=false.
func (s *CacheStore) Get(ctx context.Context, key string) (any, bool, error) {
	raw, err := s.rdb.Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}

	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores value as JSON. A ttl of zero or less never expires.
func (s *CacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %q: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.fullKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Del removes key.
func (s *CacheStore) Del(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("cache del %q: %w", key, err)
	}
	return nil
}

// Clear removes every key under the prefix. Without a prefix it refuses,
// since it would flush unrelated keys.
func (s *CacheStore) Clear(ctx context.Context) error {
	if s.keyPrefix == "" {
		return errors.New("cache clear: refusing to clear without a key prefix")
	}

	iter := s.rdb.Scan(ctx, 0, s.keyPrefix+":*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache clear scan: %w", err)
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

var (
	_ middleware.CacheStore   = (*CacheStore)(nil)
	_ middleware.CacheClearer = (*CacheStore)(nil)
)
