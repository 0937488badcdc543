package middleware

import (
	"context"
	"sync"
	"time"
)

// CacheStore is the storage behind the Cache policy. Get reports found=false
// for absent or expired keys.
type CacheStore interface {
	Get(ctx context.Context, key string) (value any, found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CacheClearer is implemented by stores that can drop every entry.
type CacheClearer interface {
	Clear(ctx context.Context) error
}

// MemoryCacheStore is an in-process CacheStore. Create one per pipeline;
// it is safe for concurrent use. Values are kept by reference: a cached
// pointer or map is the same object the executor returned, so callers must
// not mutate results. Collection hands out copies of top-level documents.
type MemoryCacheStore struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time // zero means no expiration
}

// NewMemoryCacheStore creates an empty in-memory store.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		items: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// Get returns the value for key. An entry read past its expiry is evicted
// and reported as a miss.
func (s *MemoryCacheStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		if current, still := s.items[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key. A ttl of zero or less never expires.
func (s *MemoryCacheStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = entry
	return nil
}

// Del removes key.
func (s *MemoryCacheStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Clear removes every entry.
func (s *MemoryCacheStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]cacheEntry)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (s *MemoryCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var (
	_ CacheStore   = (*MemoryCacheStore)(nil)
	_ CacheClearer = (*MemoryCacheStore)(nil)
)
