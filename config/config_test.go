package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "test-secret", cfg.AppSecret)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}

func TestLoadRequiresSecret(t *testing.T) {
	os.Clearenv()

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_SECRET", "test-secret")
	os.Setenv("LISTEN_ADDR", ":9090")
	os.Setenv("ACCESS_TOKEN_TTL", "15m")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestTokenTTLFallback(t *testing.T) {
	cfg := &Config{AccessTokenTTL: "bogus"}
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}
