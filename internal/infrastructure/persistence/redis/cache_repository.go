// Package redis provides the shared Redis implementation of the cache repository
package redis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/infrastructure/cache"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// CacheRepository stores values in Redis under a fixed key prefix
type CacheRepository struct {
	client *cache.RedisClient
	prefix string
	logger *zap.Logger
}

// NewCacheRepository creates a Redis backed cache repository
func NewCacheRepository(client *cache.RedisClient, prefix string, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value. Missing keys and an open breaker both read as a miss.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, cache.ErrKeyNotFound), errors.Is(err, cache.ErrCircuitOpen):
		return nil, outbound.ErrCacheMiss
	default:
		r.logger.Debug("Cache get failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl); err != nil {
		r.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a value from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, r.prefix+key); err != nil {
		r.logger.Warn("Cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
