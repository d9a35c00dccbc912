package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TABLE_SERVICE_PORT", "RATE_LIMIT", "STORE_DRIVER", "MONGODB_URI", "HALL_OF_FAME_POSTGRES_URL", "NATS_URL", "NATS_TOKEN",
		"JWT_SECRET_KEY", "PUBLIC_BASE_URL", "MEDIA_ENDPOINT", "MEDIA_REGION", "MEDIA_BUCKET",
		"MEDIA_ACCESS_KEY_ID", "MEDIA_ACCESS_KEY_SECRET", "MEDIA_PUBLIC_BASE_URL",
		"CODE_ACTIVITY_WINDOW", "CODE_MAX_ATTEMPTS", "JOIN_TOAST_DURATION", "SWEEP_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("STORE_DRIVER", DriverMemory)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Equal(t, 14*24*time.Hour, cfg.CodeActivityWindow)
	assert.Equal(t, 20, cfg.CodeMaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.JoinToastDuration)
	assert.Equal(t, "auto", cfg.MediaRegion)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("STORE_DRIVER", DriverMongo)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MEDIA_BUCKET", "plates")
	t.Setenv("CODE_ACTIVITY_WINDOW", "48h")
	t.Setenv("CODE_MAX_ATTEMPTS", "nope")
	t.Setenv("JOIN_TOAST_DURATION", "-1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, cfg.CodeActivityWindow)
	assert.Equal(t, 20, cfg.CodeMaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.JoinToastDuration)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"STORE_DRIVER": DriverMemory}},
		{"mongo without uri", map[string]string{"JWT_SECRET_KEY": "s", "MEDIA_BUCKET": "b"}},
		{"mongo without bucket", map[string]string{"JWT_SECRET_KEY": "s", "MONGODB_URI": "mongodb://x"}},
		{"unknown driver", map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, cfg Config)
	}{
		{"RATE_LIMIT", "0", func(t *testing.T, cfg Config) { assert.Equal(t, 120, cfg.RateLimit) }},
		{"RATE_LIMIT", "300", func(t *testing.T, cfg Config) { assert.Equal(t, 300, cfg.RateLimit) }},
		{"CODE_MAX_ATTEMPTS", "-4", func(t *testing.T, cfg Config) { assert.Equal(t, 20, cfg.CodeMaxAttempts) }},
		{"SWEEP_INTERVAL", "soon", func(t *testing.T, cfg Config) { assert.Equal(t, time.Hour, cfg.SweepInterval) }},
		{"SWEEP_INTERVAL", "15m", func(t *testing.T, cfg Config) { assert.Equal(t, 15*time.Minute, cfg.SweepInterval) }},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET_KEY", "s3cret")
			t.Setenv("STORE_DRIVER", DriverMemory)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
