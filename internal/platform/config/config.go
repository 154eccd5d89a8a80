// Copyright (c) 2026 Bestiary. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, clients) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Bestiary API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Upstream providers
	PokeAPIURL         string `env:"POKEAPI_URL"         envDefault:"https://pokeapi.co/api/v2"`
	FunTranslationsURL string `env:"FUNTRANSLATIONS_URL" envDefault:"https://api.funtranslations.com"`

	// Cache tier retentions
	CacheLocalTTL    time.Duration `env:"CACHE_LOCAL_TTL"    envDefault:"30m"`
	CacheSharedTTL   time.Duration `env:"CACHE_SHARED_TTL"   envDefault:"24h"`
	CacheFailsafeTTL time.Duration `env:"CACHE_FAILSAFE_TTL" envDefault:"168h"`

	// Circuit breaker guarding the translation provider
	BreakerWindow        time.Duration `env:"BREAKER_WINDOW"          envDefault:"10s"`
	BreakerMinSamples    int           `env:"BREAKER_MIN_SAMPLES"     envDefault:"3"`
	BreakerFailureRatio  float64       `env:"BREAKER_FAILURE_RATIO"   envDefault:"0.5"`
	BreakerOpen          time.Duration `env:"BREAKER_OPEN"            envDefault:"30s"`
	BreakerRateLimitOpen time.Duration `env:"BREAKER_RATE_LIMIT_OPEN" envDefault:"15m"`

	// Retry and timeout for translation calls
	RetryMax         int           `env:"RETRY_MAX"          envDefault:"2"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY"   envDefault:"2s"`
	TranslateTimeout time.Duration `env:"TRANSLATE_TIMEOUT"  envDefault:"30s"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
