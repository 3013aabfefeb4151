package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, "5432", cfg.PostgresPort)
	assert.Equal(t, "seismic", cfg.PostgresDB)
	assert.Equal(t, "postgres", cfg.PostgresUser)
	assert.Equal(t, "disable", cfg.PostgresSSLMode)

	assert.Equal(t, 20*time.Second, cfg.SourceFetchTimeout)
	assert.Equal(t, 3, cfg.SourcePoolWidth)
	assert.Equal(t, 4, cfg.EventPoolWidth)
	assert.Equal(t, 4, cfg.DedupPoolWidth)

	assert.Equal(t, 8.0, cfg.DedupDtThresholdSeconds)
	assert.Equal(t, 8.0, cfg.DedupDdThresholdKm)
	assert.Equal(t, 0.7, cfg.DedupDmThreshold)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.KafkaEventsTopic)
	assert.Empty(t, cfg.PushgatewayURL)

	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("SOURCE_FETCH_TIMEOUT", "5s")
	t.Setenv("SOURCE_POOL_WIDTH", "6")
	t.Setenv("EVENT_POOL_WIDTH", "8")
	t.Setenv("DEDUP_POOL_WIDTH", "2")
	t.Setenv("DEDUP_DT_THRESHOLD_SECONDS", "12")
	t.Setenv("DEDUP_DD_THRESHOLD_KM", "15")
	t.Setenv("DEDUP_DM_THRESHOLD", "0.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_EVENTS_TOPIC", "seismic-events")
	t.Setenv("PROMETHEUS_PUSHGATEWAY_URL", "http://pushgw:9091")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, "5433", cfg.PostgresPort)
	assert.Equal(t, 5*time.Second, cfg.SourceFetchTimeout)
	assert.Equal(t, 6, cfg.SourcePoolWidth)
	assert.Equal(t, 8, cfg.EventPoolWidth)
	assert.Equal(t, 2, cfg.DedupPoolWidth)
	assert.Equal(t, 12.0, cfg.DedupDtThresholdSeconds)
	assert.Equal(t, 15.0, cfg.DedupDdThresholdKm)
	assert.Equal(t, 0.5, cfg.DedupDmThreshold)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "seismic-events", cfg.KafkaEventsTopic)
	assert.Equal(t, "http://pushgw:9091", cfg.PushgatewayURL)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeSourceFetchTimeout(t *testing.T) {
	t.Setenv("SOURCE_FETCH_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_FETCH_TIMEOUT")
}

func TestLoad_InvalidPoolWidth(t *testing.T) {
	t.Setenv("EVENT_POOL_WIDTH", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENT_POOL_WIDTH")
}

func TestLoad_InvalidDedupThreshold(t *testing.T) {
	t.Setenv("DEDUP_DM_THRESHOLD", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEDUP_DM_THRESHOLD")
}

func TestLoad_EventsTopicWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_EVENTS_TOPIC", "seismic-events")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
