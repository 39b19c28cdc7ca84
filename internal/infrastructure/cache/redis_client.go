// Package cache provides the two-tier blob cache used to publish compressed
// images: a process-local LRU in front of an optional shared Redis tier.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/pkg/healthcheck"
)

var (
	// ErrKeyNotFound is returned when Redis has no value for a key
	ErrKeyNotFound = errors.New("key not found in cache")
	// ErrCircuitOpen is returned while the breaker rejects calls
	ErrCircuitOpen = healthcheck.ErrCircuitOpen
)

// RedisClient wraps a go-redis client with a circuit breaker and hit counters
type RedisClient struct {
	client  redis.UniversalClient
	logger  *zap.Logger
	breaker *healthcheck.CircuitBreaker
	stats   *Stats
}

// Stats counts cache outcomes
type Stats struct {
	mu     sync.RWMutex
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(cfg *config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  10 * time.Second,
	})

	rc := NewRedisClientFrom(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rc.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database))

	return rc, nil
}

// NewRedisClientFrom wraps an existing go-redis client
func NewRedisClientFrom(client redis.UniversalClient, logger *zap.Logger) *RedisClient {
	logger = logger.Named("redis")
	return &RedisClient{
		client: client,
		logger: logger,
		breaker: healthcheck.NewCircuitBreaker("redis", healthcheck.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Timeout:          30 * time.Second,
			MaxRequests:      1,
			OnStateChange: func(name string, from, to healthcheck.CircuitBreakerState) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		stats: &Stats{},
	}
}

// Breaker exposes the client's circuit breaker for health reporting
func (r *RedisClient) Breaker() *healthcheck.CircuitBreaker {
	return r.breaker
}

// A missing key is an answer, not a fault
func countable(err error) bool {
	return !errors.Is(err, redis.Nil)
}

// Ping tests the Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.breaker.Do(func() error {
		return r.client.Ping(ctx).Err()
	}, countable)
}

// Get retrieves a value. A missing key yields ErrKeyNotFound.
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte
	err := r.breaker.Do(func() error {
		var err error
		result, err = r.client.Get(ctx, key).Bytes()
		return err
	}, countable)

	switch {
	case errors.Is(err, redis.Nil), errors.Is(err, ErrCircuitOpen):
		r.stats.miss()
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	case err != nil:
		r.fail("GET", key, err)
		return nil, err
	}

	r.stats.hit()
	return result, nil
}

// Set stores a value with TTL
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.breaker.Do(func() error {
		return r.client.Set(ctx, key, value, ttl).Err()
	}, countable)
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		r.fail("SET", key, err)
	}
	return err
}

// Delete removes keys
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	err := r.breaker.Do(func() error {
		return r.client.Del(ctx, keys...).Err()
	}, countable)
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		r.fail("DEL", fmt.Sprint(keys), err)
	}
	return err
}

// Exists counts how many of keys exist
func (r *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	err := r.breaker.Do(func() error {
		var err error
		n, err = r.client.Exists(ctx, keys...).Result()
		return err
	}, countable)
	if err != nil {
		if !errors.Is(err, ErrCircuitOpen) {
			r.fail("EXISTS", fmt.Sprint(keys), err)
		}
		return 0, err
	}
	return n, nil
}

// Stats returns a copy of the hit counters
func (r *RedisClient) Stats() Stats {
	r.stats.mu.RLock()
	defer r.stats.mu.RUnlock()
	return Stats{Hits: r.stats.Hits, Misses: r.stats.Misses, Errors: r.stats.Errors}
}

// Close closes the underlying client
func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) fail(op, key string, err error) {
	r.stats.fault()
	r.logger.Error("Redis command failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
}

func (s *Stats) hit() {
	s.mu.Lock()
	s.Hits++
	s.mu.Unlock()
}

func (s *Stats) miss() {
	s.mu.Lock()
	s.Misses++
	s.mu.Unlock()
}

func (s *Stats) fault() {
	s.mu.Lock()
	s.Errors++
	s.mu.Unlock()
}

// HitRatio returns hits / (hits + misses)
func (s *Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
