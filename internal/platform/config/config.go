package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures server-level configuration so main stays lean.
type Config struct {
	Addr        string
	Environment string
	LogLevel    string

	// DatabaseURL selects the Postgres store when set; the in-memory store is
	// used otherwise (dev and tests).
	DatabaseURL string

	// RedisURL enables the distributed per-person lock. Empty means the
	// in-process keyed lock is used.
	RedisURL string

	OpenAIAPIKey string
	OpenAIModel  string
	LLMTimeout   time.Duration

	// KafkaBrokers enables streaming audit events to Kafka when non-empty.
	KafkaBrokers    string
	KafkaAuditTopic string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("PERSONAD_ADDR", ":8080"),
		Environment:     envOr("ENVIRONMENT", "development"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:      envDurationOr("LLM_TIMEOUT", 60*time.Second),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaAuditTopic: envOr("KAFKA_AUDIT_TOPIC", "personad.audit"),
	}
	return cfg
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
