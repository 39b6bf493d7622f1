package config_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("COINPAY_DATABASE__HOST", "localhost")
	t.Setenv("COINPAY_DATABASE__PORT", "5432")
	t.Setenv("COINPAY_DATABASE__USER", "coinpay")
	t.Setenv("COINPAY_DATABASE__PASSWORD", "secret")
	t.Setenv("COINPAY_DATABASE__NAME", "coinpay")
	t.Setenv("COINPAY_AUTH__JWT_SECRET", "0123456789abcdef0123")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 24, cfg.Poller.MaxAttempts)
	assert.Equal(t, 120*time.Second, cfg.Poller.Budget())
	assert.Equal(t, 3, cfg.Gateway.TokenAttempts)
	assert.Equal(t, time.Second, cfg.Gateway.TokenRetryDelay)
	assert.False(t, cfg.Approval.AutoApprove)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COINPAY_APPROVAL__AUTO_APPROVE", "true")
	t.Setenv("COINPAY_POLLER__INTERVAL", "2s")
	t.Setenv("COINPAY_KAFKA__BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Approval.AutoApprove)
	assert.Equal(t, 2*time.Second, cfg.Poller.Interval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("COINPAY_AUTH__JWT_SECRET", "0123456789abcdef0123")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoggerConfig_NewLogger(t *testing.T) {
	logger := config.LoggerConfig{Level: "debug"}.NewLogger()
	require.NotNil(t, logger)
}
