// Package config loads runtime configuration from the environment.
// Priority: environment variables > .env file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all server configuration.
type Config struct {
	// Server
	Addr        string `env:"WIRE_ADDR" envDefault:":8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// External tiers
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	// NatsURL selects the durable queue. Empty runs the in-process queue,
	// which is single-node only and intended for development and tests.
	NatsURL string `env:"NATS_URL"`

	// Identity
	// IssuerID is this process's 10-bit snowflake issuer (0-1023). Every
	// concurrently running instance must carry a distinct value.
	IssuerID int64 `env:"ISSUER_ID" envDefault:"0"`

	// Auth
	JWTSecret   string        `env:"JWT_SECRET,required"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	AdminHandle string        `env:"ADMIN_HANDLE"`

	// Content and pipeline tuning
	MaxPostLength   int           `env:"MAX_POST_LENGTH" envDefault:"280"`
	FanoutParallel  int           `env:"FANOUT_PARALLELISM" envDefault:"16"`
	RankingInterval time.Duration `env:"RANKING_INTERVAL" envDefault:"15m"`

	// Media
	MediaDir string `env:"MEDIA_DIR" envDefault:"./media"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; production supplies real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IssuerID < 0 || c.IssuerID > 1023 {
		return fmt.Errorf("ISSUER_ID must be in [0, 1023], got %d", c.IssuerID)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.MaxPostLength < 1 {
		return fmt.Errorf("MAX_POST_LENGTH must be positive, got %d", c.MaxPostLength)
	}
	return nil
}
