package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Postgres.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Expiry.DailyMatchTTL)
	assert.Equal(t, 72*time.Hour, cfg.Expiry.GroupInitiatedTTL)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RANKGATE_ADDR", ":9999")
	t.Setenv("RANKGATE_DATABASE_DRIVER", "pgx")
	t.Setenv("RANKGATE_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("RANKGATE_EXPIRY_GRACE_PERIOD", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "pgx", cfg.Postgres.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Expiry.GracePeriod)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("RANKGATE_EXPIRY_SWEEP_INTERVAL", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("RANKGATE_DATABASE_DRIVER", "mysql")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("redis limiter without redis", func(t *testing.T) {
		t.Setenv("RANKGATE_RATE_LIMIT_BACKEND", "redis")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("production refuses development secrets", func(t *testing.T) {
		t.Setenv("RANKGATE_ENV", "production")
		t.Setenv("RANKGATE_DATABASE_URL", "postgres://x")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "development secrets")
	})
}
