package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/schoolwear/pkg/config"
	"github.com/utafrali/schoolwear/pkg/database"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Store backend
	BackendBaseURL        string `env:"BACKEND_BASE_URL" envDefault:"http://localhost:3000/api"`
	BackendTimeoutSeconds int    `env:"BACKEND_TIMEOUT_SECONDS" envDefault:"15"`
	BackendMaxRetries     int    `env:"BACKEND_MAX_RETRIES" envDefault:"2"`

	// BACKEND_RATE_LIMIT is calls per second to the backend; 0 disables it.
	BackendRateLimit float64 `env:"BACKEND_RATE_LIMIT" envDefault:"20"`
	BackendRateBurst int     `env:"BACKEND_RATE_BURST" envDefault:"40"`

	// Local storage for the cart and session token
	StorageDriver    string `env:"STORAGE_DRIVER" envDefault:"memory"`
	StorageNamespace string `env:"STORAGE_NAMESPACE" envDefault:"storefront"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"schoolwear"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"schoolwear"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"schoolwear"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka; no brokers disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// 0 disables the per-line cap.
	MaxQuantityPerItem int `env:"MAX_QUANTITY_PER_ITEM" envDefault:"20"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.BackendTimeoutSeconds < 1 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive, got %d", c.BackendTimeoutSeconds)
	}
	if c.BackendMaxRetries < 0 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must not be negative, got %d", c.BackendMaxRetries)
	}
	if c.BackendRateLimit < 0 {
		return fmt.Errorf("BACKEND_RATE_LIMIT must not be negative, got %g", c.BackendRateLimit)
	}
	if c.BackendRateLimit > 0 && c.BackendRateBurst < 1 {
		return fmt.Errorf("BACKEND_RATE_BURST must be positive, got %d", c.BackendRateBurst)
	}
	switch c.StorageDriver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want memory, redis or postgres)", c.StorageDriver)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %g", c.OTELSampleRate)
	}
	if c.MaxQuantityPerItem < 0 {
		return fmt.Errorf("MAX_QUANTITY_PER_ITEM must not be negative, got %d", c.MaxQuantityPerItem)
	}
	return nil
}

// BackendTimeout is the per-request timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// Postgres builds the pool configuration for the postgres storage driver.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// Redis builds the client configuration for the redis storage driver.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPass, DB: c.RedisDB}
}

// EventsEnabled reports whether Kafka brokers are configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
