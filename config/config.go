// Package config loads app configuration from env and an optional .env file
// using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// ListenAddr is the address the HTTP server listens on.
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	// AppSecret seals challenge tokens and signs access tokens. Required.
	AppSecret string `mapstructure:"APP_SECRET"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis address for the OTP cache and event stream.
	RedisURL string `mapstructure:"REDIS_URL"`
	// RedisPassword is the optional redis auth password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// GoogleClientID enables Google login when set.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	// AccessTokenTTL is the access token lifetime (e.g. "24h").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// LogLevel is the logrus level name (e.g. "info", "debug").
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Missing .env is ignored; env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("APP_SECRET", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "24h")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AppSecret == "" {
		return nil, errors.New("config: APP_SECRET must be set")
	}
	if cfg.ListenAddr == "" {
		return nil, errors.New("config: LISTEN_ADDR must be set")
	}

	return &cfg, nil
}

// TokenTTL parses AccessTokenTTL as a time.Duration. Returns 24h if unset
// or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
