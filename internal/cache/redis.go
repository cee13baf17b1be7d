package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"channel-service/internal/config"
)

// NewRedisClient dials redis and verifies the connection.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisCache is a Cache backed by redis. Reads are bounded by the configured read timeout and all
// calls go through a circuit breaker so a struggling redis is skipped instead of waited on.
type RedisCache struct {
	client       redis.UniversalClient
	breaker      *gobreaker.CircuitBreaker
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          *zap.Logger
}

func NewRedisCache(client redis.UniversalClient, cfg config.CacheConfig, log *zap.Logger) *RedisCache {
	log = log.Named("cache")
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &RedisCache{
		client:       client,
		breaker:      gobreaker.NewCircuitBreaker(st),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		log:          log,
	}
}

func (c *RedisCache) bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.bounded(ctx, c.readTimeout)
	defer cancel()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		raw, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return raw, err
	})
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}
	return res.([]byte), nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.bounded(ctx, c.writeTimeout)
	defer cancel()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		c.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.bounded(ctx, c.writeTimeout)
	defer cancel()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		c.log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return err
}

// DeletePattern removes every key matching pattern using SCAN, never KEYS.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	ctx, cancel := c.bounded(ctx, 4*c.writeTimeout)
	defer cancel()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, 200).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return nil, err
				}
			}
			if next == 0 {
				return nil, nil
			}
			cursor = next
		}
	})
	if err != nil {
		c.log.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return err
}
