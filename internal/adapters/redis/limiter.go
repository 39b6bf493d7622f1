package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "coinpay:initiate:"

// RateLimiter is a fixed-window counter per identity. The first request in a
// window sets the key's expiry.
type RateLimiter struct {
	client *goredis.Client
	limit  int64
	window time.Duration
}

var _ ports.RateLimiter = (*RateLimiter)(nil)

func NewRateLimiter(client *goredis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  cfg.Limit,
		window: cfg.Window,
	}
}

// Connect opens a client and verifies the server answers.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	redisKey := keyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("increment rate counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("set rate window: %w", err)
		}
	}
	return count <= l.limit, nil
}
