package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "COINPAY_"

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Poller    PollerConfig    `koanf:"poller"`
	Approval  ApprovalConfig  `koanf:"approval"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	Worker    WorkerConfig    `koanf:"worker"`
	Retention RetentionConfig `koanf:"retention"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Auth      AuthConfig      `koanf:"auth"`
	Logger    LoggerConfig    `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// GatewayConfig holds the push-payment gateway credentials. Credentials are not
// required at startup; a client without them answers every call with CONFIG_ERROR.
type GatewayConfig struct {
	BaseURL         string        `koanf:"base_url" validate:"required,url"`
	ConsumerKey     string        `koanf:"consumer_key"`
	ConsumerSecret  string        `koanf:"consumer_secret"`
	ShortCode       string        `koanf:"short_code"`
	Passkey         string        `koanf:"passkey"`
	CallbackURL     string        `koanf:"callback_url"`
	TransactionType string        `koanf:"transaction_type"`
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
	TokenAttempts   int           `koanf:"token_attempts" validate:"min=1"`
	TokenRetryDelay time.Duration `koanf:"token_retry_delay"`
}

type PollerConfig struct {
	Interval    time.Duration `koanf:"interval" validate:"required"`
	MaxAttempts int           `koanf:"max_attempts" validate:"min=1"`
}

// Budget is the wall-clock time a poll session may run.
func (c PollerConfig) Budget() time.Duration {
	return c.Interval * time.Duration(c.MaxAttempts)
}

type ApprovalConfig struct {
	AutoApprove bool `koanf:"auto_approve"`
}

type WebhookConfig struct {
	Workers    int           `koanf:"workers" validate:"min=1"`
	QueueSize  int           `koanf:"queue_size" validate:"min=1"`
	AckTimeout time.Duration `koanf:"ack_timeout" validate:"required"`
}

type WorkerConfig struct {
	Interval            time.Duration `koanf:"interval" validate:"required"`
	BatchSize           int           `koanf:"batch_size" validate:"required"`
	MaxCallbackAttempts int           `koanf:"max_callback_attempts" validate:"min=1"`
	PendingGrace        time.Duration `koanf:"pending_grace"`
}

type RetentionConfig struct {
	MaxAge    time.Duration `koanf:"max_age" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"min=1"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RateLimitConfig struct {
	Limit  int64         `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=16"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// NewLogger builds the process-wide JSON logger at the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                  "development",
		"server.port":                  "8080",
		"server.read_timeout":          "15s",
		"server.write_timeout":         "30s",
		"server.idle_timeout":          "60s",
		"database.ssl_mode":            "disable",
		"database.max_open_conns":      10,
		"database.max_idle_conns":      2,
		"database.conn_max_lifetime":   "1h",
		"database.conn_max_idle_time":  "30m",
		"gateway.base_url":             "https://sandbox.safaricom.co.ke",
		"gateway.transaction_type":     "CustomerPayBillOnline",
		"gateway.timeout":              "30s",
		"gateway.token_attempts":       3,
		"gateway.token_retry_delay":    "1s",
		"poller.interval":              "5s",
		"poller.max_attempts":          24,
		"webhook.workers":              4,
		"webhook.queue_size":           256,
		"webhook.ack_timeout":          "800ms",
		"worker.interval":              "30s",
		"worker.batch_size":            50,
		"worker.max_callback_attempts": 5,
		"worker.pending_grace":         "1m",
		"retention.max_age":            "2160h",
		"retention.batch_size":         500,
		"rate_limit.limit":             5,
		"rate_limit.window":            "1m",
		"kafka.topic":                  "coinpay.payments",
		"logger.level":                 "info",
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load default configuration", "error", err)
		return nil, err
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(s, v string) (string, any) {
		key := strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
		if key == "kafka.brokers" {
			return key, strings.Split(v, ",")
		}
		return key, v
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
