package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/redis"
	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return config.RedisConfig{Addr: host + ":" + port.Port()}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	client, err := redis.Connect(ctx, setupRedis(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer client.Close()

	limiter := redis.NewRateLimiter(client, config.RateLimitConfig{Limit: 2, Window: time.Second})

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "third request inside the window")

	ok, err = limiter.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok, "identities are counted separately")

	ttl, err := client.TTL(ctx, "coinpay:initiate:user-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	assert.Eventually(t, func() bool {
		ok, err := limiter.Allow(ctx, "user-1")
		return err == nil && ok
	}, 3*time.Second, 100*time.Millisecond)
}

func TestRateLimiter_DisabledLimit(t *testing.T) {
	limiter := redis.NewRateLimiter(nil, config.RateLimitConfig{Limit: 0})

	ok, err := limiter.Allow(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, ok)
}
