package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/educore")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ENV", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("MIGRATIONS_AUTO", "")
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "edu-core", cfg.ServiceName)
	assert.Empty(t, cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.MigrationsAuto)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/educore")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ENV", "production")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("MIGRATIONS_AUTO", "false")
	t.Setenv("SERVICE_NAME", "edu-core-staging")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "edu-core-staging", cfg.ServiceName)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.MigrationsAuto)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"DB_DSN": "", "JWT_SECRET": "x"}},
		{"missing secret", map[string]string{"DB_DSN": "postgres://", "JWT_SECRET": ""}},
		{"bad ttl", map[string]string{"DB_DSN": "postgres://", "JWT_SECRET": "x", "CACHE_TTL": "soon"}},
		{"negative ttl", map[string]string{"DB_DSN": "postgres://", "JWT_SECRET": "x", "CACHE_TTL": "-1m"}},
		{"bad bool", map[string]string{"DB_DSN": "postgres://", "JWT_SECRET": "x", "MIGRATIONS_AUTO": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CACHE_TTL", "")
			t.Setenv("MIGRATIONS_AUTO", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
