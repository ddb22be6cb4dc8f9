package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, StoragePostgres, cfg.Storage)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"enrollment_events", "activity_events"}, cfg.ConsumerTopics)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.Equal(t, 5, cfg.DLQMaxRetries)
	require.Equal(t, 5*time.Second, cfg.EnrollTimeout)
	require.False(t, cfg.OutboxEnabled)
	require.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	require.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
	require.True(t, cfg.LogJSON)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("DLQ_MAX_RETRIES", "many")

	_, err := Load()
	require.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")
	_, err := Load()
	require.ErrorContains(t, err, "STORAGE must be")

	t.Setenv("STORAGE", "memory")
	t.Setenv("OUTBOX_ENABLED", "true")
	_, err = Load()
	require.ErrorContains(t, err, "OUTBOX_ENABLED requires STORAGE=postgres")
}
