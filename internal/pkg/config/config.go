// Package config loads the storefront configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"memory"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"storefront.db"`
	SagaLogPath     string        `env:"SAGA_LOG_PATH"`
	DeliveryFee     int64         `env:"DELIVERY_FEE" envDefault:"12000"`
	SettlementDelay time.Duration `env:"SETTLEMENT_DELAY" envDefault:"2s"`
	OrderRetention  time.Duration `env:"ORDER_RETENTION" envDefault:"0s"`
	CartIdleTTL     time.Duration `env:"CART_IDLE_TTL" envDefault:"30m"`
	CartMaxSessions int           `env:"CART_MAX_SESSIONS" envDefault:"10000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName     string        `env:"OTEL_SERVICE_NAME" envDefault:"pizzeria-storefront"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	TracingEnabled  bool          `env:"TRACING_ENABLED" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config and checks the values env tags cannot express.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.DeliveryFee < 0 {
		return fmt.Errorf("config: DELIVERY_FEE must not be negative, got %d", c.DeliveryFee)
	}
	if c.SettlementDelay < 0 {
		return fmt.Errorf("config: SETTLEMENT_DELAY must not be negative, got %s", c.SettlementDelay)
	}
	if c.OrderRetention < 0 {
		return fmt.Errorf("config: ORDER_RETENTION must not be negative, got %s", c.OrderRetention)
	}
	if c.CartIdleTTL < 0 {
		return fmt.Errorf("config: CART_IDLE_TTL must not be negative, got %s", c.CartIdleTTL)
	}
	if c.CartMaxSessions < 0 {
		return fmt.Errorf("config: CART_MAX_SESSIONS must not be negative, got %d", c.CartMaxSessions)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
