package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = 5 * time.Minute

// MemoryCache is a process-local CacheService backed by go-cache. Values are
// stored JSON-encoded so it behaves like the redis implementation, corrupt
// payloads included.
type MemoryCache struct {
	items *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: gocache.New(gocache.NoExpiration, memoryCleanupInterval),
	}
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	m.Put(key, payload, ttl)
	return nil
}

// Put stores a raw payload as-is. A non-positive ttl never expires.
func (m *MemoryCache) Put(key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.items.Set(key, payload, ttl)
}

// Raw returns the stored payload, if any.
func (m *MemoryCache) Raw(key string) ([]byte, bool) {
	value, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	payload, ok := value.([]byte)
	return payload, ok
}

func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := m.Raw(key)
	if !ok {
		return ErrCacheMiss
	}
	return decode(key, payload, dest)
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// DeletePattern removes every live key matching a glob pattern, as redis KEYS does.
func (m *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	for key := range m.items.Items() {
		if matched, _ := path.Match(pattern, key); matched {
			m.items.Delete(key)
		}
	}
	return nil
}
