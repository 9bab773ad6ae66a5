package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the alerting engine and its
// surrounding service.
type Config struct {
	LogLevel string
	HTTP     HTTPConfig
	Engine   EngineConfig
	Kafka    KafkaConfig
	Postgres PostgresConfig
}

// HTTPConfig configures the API surface.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// EngineConfig configures history retention and dispatch concurrency.
type EngineConfig struct {
	// Retention is how long readings are kept in memory per series
	Retention time.Duration
	// MaxEntriesPerSeries is a secondary cap independent of age
	MaxEntriesPerSeries int
	// SweepInterval is how often the retention sweeper runs
	SweepInterval time.Duration
	// DispatchWorkers is the number of shard workers delivering alerts
	DispatchWorkers int
	// DispatchQueueSize is the per-worker job buffer
	DispatchQueueSize int
}

// KafkaConfig configures the alert delivery channel. Empty Brokers
// disables Kafka delivery and alerts are logged instead.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the audit store and identity lookups.
// Empty DSN disables persistence.
type PostgresConfig struct {
	DSN string
}

// Default returns a sensible default config for local dev.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodySize:  1 * 1024 * 1024, // 1MB
		},
		Engine: EngineConfig{
			Retention:           24 * time.Hour,
			MaxEntriesPerSeries: 100000,
			SweepInterval:       time.Hour,
			DispatchWorkers:     4,
			DispatchQueueSize:   256,
		},
		Kafka: KafkaConfig{
			Topic:        "vitalwatch.alerts",
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// FromEnv returns the default config overridden by environment variables.
func FromEnv() *Config {
	cfg := Default()

	cfg.LogLevel = getEnv("VITALWATCH_LOG_LEVEL", cfg.LogLevel)
	cfg.HTTP.Addr = getEnv("VITALWATCH_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Postgres.DSN = getEnv("VITALWATCH_POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Kafka.Topic = getEnv("VITALWATCH_KAFKA_TOPIC", cfg.Kafka.Topic)

	if brokers := os.Getenv("VITALWATCH_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}

	cfg.Engine.Retention = getDuration("VITALWATCH_RETENTION", cfg.Engine.Retention)
	cfg.Engine.SweepInterval = getDuration("VITALWATCH_SWEEP_INTERVAL", cfg.Engine.SweepInterval)
	cfg.Engine.MaxEntriesPerSeries = getInt("VITALWATCH_MAX_ENTRIES", cfg.Engine.MaxEntriesPerSeries)
	cfg.Engine.DispatchWorkers = getInt("VITALWATCH_DISPATCH_WORKERS", cfg.Engine.DispatchWorkers)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
