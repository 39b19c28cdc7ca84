// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// DefaultTTL bounds every entry, including those stored with ttl 0
const DefaultTTL = 24 * time.Hour

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// CacheRepository is a size-bounded LRU with per-key expiry
type CacheRepository struct {
	items *expirable.LRU[string, cacheItem]
	now   func() time.Time
}

// NewCacheRepository creates an LRU holding at most size entries
func NewCacheRepository(size int) *CacheRepository {
	if size <= 0 {
		size = 1024
	}
	return &CacheRepository{
		items: expirable.NewLRU[string, cacheItem](size, nil, DefaultTTL),
		now:   time.Now,
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value from cache
func (r *CacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	item, ok := r.items.Get(key)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	if r.now().After(item.expiresAt) {
		r.items.Remove(key)
		return nil, outbound.ErrCacheMiss
	}
	return item.value, nil
}

// Set stores a value in cache with TTL. A zero ttl uses DefaultTTL.
func (r *CacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > DefaultTTL {
		ttl = DefaultTTL
	}
	r.items.Add(key, cacheItem{value: value, expiresAt: r.now().Add(ttl)})
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(_ context.Context, key string) error {
	r.items.Remove(key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Len returns the number of live and not yet purged entries
func (r *CacheRepository) Len() int {
	return r.items.Len()
}
