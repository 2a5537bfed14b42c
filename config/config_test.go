package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "./data", cfg.Store.DataDir)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, "inkpress.events", cfg.MQ.Channel)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("UPSTREAM_BASE_URL", "http://backend.local/api/")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "http://backend.local/api", cfg.Upstream.BaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"unknown store", func(c *Config) { c.Store.Backend = "mongo" }, true},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "s3" }, true},
		{"unknown mq", func(c *Config) { c.MQ.Backend = "kafka" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Store:   StoreConfig{Backend: "file"},
				Auth:    AuthConfig{JWTSecret: "secret"},
				Storage: StorageConfig{Backend: "none"},
				MQ:      MQConfig{Backend: "none"},
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
