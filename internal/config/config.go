package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	SourceFetchTimeout time.Duration
	SourcePoolWidth    int
	EventPoolWidth     int
	DedupPoolWidth     int

	DedupDtThresholdSeconds float64
	DedupDdThresholdKm      float64
	DedupDmThreshold        float64

	LogLevel  string
	LogFormat string

	KafkaBrokers     []string
	KafkaEventsTopic string

	PushgatewayURL string

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset and validating cross-field constraints.
func Load() (*Config, error) {
	sourceFetchTimeout, err := parseDuration("SOURCE_FETCH_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	sourcePoolWidth, err := parsePositiveInt("SOURCE_POOL_WIDTH", 3)
	if err != nil {
		return nil, err
	}
	eventPoolWidth, err := parsePositiveInt("EVENT_POOL_WIDTH", 4)
	if err != nil {
		return nil, err
	}
	dedupPoolWidth, err := parsePositiveInt("DEDUP_POOL_WIDTH", 4)
	if err != nil {
		return nil, err
	}

	dtThreshold, err := parsePositiveFloat("DEDUP_DT_THRESHOLD_SECONDS", 8)
	if err != nil {
		return nil, err
	}
	ddThreshold, err := parsePositiveFloat("DEDUP_DD_THRESHOLD_KM", 8)
	if err != nil {
		return nil, err
	}
	dmThreshold, err := parsePositiveFloat("DEDUP_DM_THRESHOLD", 0.7)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		PostgresHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     envOrDefault("POSTGRES_PORT", "5432"),
		PostgresDB:       envOrDefault("POSTGRES_DB", "seismic"),
		PostgresUser:     envOrDefault("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresSSLMode:  envOrDefault("POSTGRES_SSLMODE", "disable"),

		SourceFetchTimeout: sourceFetchTimeout,
		SourcePoolWidth:    sourcePoolWidth,
		EventPoolWidth:     eventPoolWidth,
		DedupPoolWidth:     dedupPoolWidth,

		DedupDtThresholdSeconds: dtThreshold,
		DedupDdThresholdKm:      ddThreshold,
		DedupDmThreshold:        dmThreshold,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaEventsTopic: os.Getenv("KAFKA_EVENTS_TOPIC"),

		PushgatewayURL: os.Getenv("PROMETHEUS_PUSHGATEWAY_URL"),

		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.KafkaEventsTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is set but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return f, nil
}

func parseBrokers(value string) []string {
	parts := strings.Split(value, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
