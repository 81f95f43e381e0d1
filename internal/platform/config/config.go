// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

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
  - DI-Friendly: Passed to core components (DB, Redis, token authority) via constructors.
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

// Config holds all runtime configuration for the auth service.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Application identity. AppName doubles as the JWT issuer; AppBaseURL as
	// the JWT audience.
	AppName    string `env:"APP_NAME"     envDefault:"suoke-auth-service"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"https://suoke.life"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// JWT signing (HMAC-SHA256). The secret must never be logged.
	JWTSecret          string        `env:"JWT_SECRET,required"`
	AccessTokenExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY"  envDefault:"24h"`
	RefreshTokenExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Session durations
	SessionCacheTTL        time.Duration `env:"SESSION_CACHE_TTL"             envDefault:"1h"`
	SessionDefaultDuration time.Duration `env:"SESSION_DEFAULT_DURATION"      envDefault:"24h"`
	TrustedDeviceDuration  time.Duration `env:"SESSION_TRUSTED_DEVICE_DURATION" envDefault:"720h"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL"      envDefault:"10m"`

	// Device verification
	DeviceVerificationCodeTTL time.Duration `env:"DEVICE_VERIFICATION_CODE_TTL" envDefault:"15m"`

	// Security log retention
	SecurityLogRetentionDays int      `env:"SECURITY_LOG_RETENTION_DAYS" envDefault:"30"`
	HighPriorityEvents       []string `env:"SECURITY_LOG_HIGH_PRIORITY"  envSeparator:","`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
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

// SecurityLogRetention converts the retention-days setting into a duration.
func (c *Config) SecurityLogRetention() time.Duration {
	return time.Duration(c.SecurityLogRetentionDays) * 24 * time.Hour
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
