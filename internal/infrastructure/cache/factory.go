package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cafe/backend/internal/domain/shared"
	"github.com/cafe/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// inMemoryCleanupInterval is how often the fallback store drops expired keys
const inMemoryCleanupInterval = 5 * time.Minute

// NewRedisClient creates a client for the configured server and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore returns a Redis store when Redis is enabled and
// reachable, and an in-memory store otherwise. The fast path is advisory,
// so an unreachable Redis degrades instead of failing startup.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	if !cfg.Enabled || cfg.Host == "" {
		logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(inMemoryCleanupInterval)
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
			"other worker instances will not share deducted orders",
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(inMemoryCleanupInterval)
	}

	logger.Info("using Redis idempotency store", zap.String("addr", cfg.Addr()))
	return NewRedisIdempotencyStore(client, DefaultKeyPrefix)
}
