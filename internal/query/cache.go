package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores encoded read results for their stale time.
type Cache interface {
	Get(ctx context.Context, id string) ([]byte, bool, error)
	Set(ctx context.Context, id string, value []byte, ttl time.Duration) error
	// DeletePrefix drops every entry whose id starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache builds an empty cache. now defaults to time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{items: make(map[string]memoryEntry), now: now}
}

// Get returns a fresh entry.
func (c *MemoryCache) Get(_ context.Context, id string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.items[id]
	if !found || (!e.expires.IsZero() && !c.now().Before(e.expires)) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value; a non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, id string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.items[id] = memoryEntry{value: append([]byte(nil), value...), expires: exp}
	return nil
}

// DeletePrefix drops matching entries.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.items {
		if strings.HasPrefix(id, prefix) {
			delete(c.items, id)
		}
	}
	return nil
}

// Len reports the number of stored entries, fresh or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// RedisCache keeps entries as plain string keys under a namespace, letting
// Redis expire them.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

// NewRedisCache builds a cache on client. Keys are stored as namespace+id.
func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	if namespace == "" {
		namespace = "attendboard:query:"
	}
	return &RedisCache{client: client, namespace: namespace}
}

// Get returns the stored entry, if any.
func (c *RedisCache) Get(ctx context.Context, id string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, c.namespace+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return raw, true, nil
}

// Set stores value with ttl; a non-positive ttl never expires.
func (c *RedisCache) Set(ctx context.Context, id string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.namespace+id, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeletePrefix scans for matching keys and deletes them in batches.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := globEscape(c.namespace+prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var globSpecial = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string { return globSpecial.Replace(s) }
