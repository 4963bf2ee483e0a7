package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs from its environment so main
// stays lean and nothing reads ambient globals later.
type Config struct {
	Addr           string
	PostgresDSN    string // empty: in-memory identity store
	RedisURL       string // empty: in-memory session store
	KafkaBootstrap string // empty: agent notifications disabled
	JWTSigningKey  string
	SessionTTL     time.Duration
	KeygenTimeout  time.Duration
	NotifyTimeout  time.Duration
	DIDMaxAttempts int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:           envOr("REGISTRY_ADDR", ":8080"),
		PostgresDSN:    os.Getenv("REGISTRY_POSTGRES_DSN"),
		RedisURL:       os.Getenv("REGISTRY_REDIS_URL"),
		KafkaBootstrap: os.Getenv("REGISTRY_KAFKA_BOOTSTRAP"),
		JWTSigningKey:  os.Getenv("REGISTRY_JWT_SIGNING_KEY"),
		SessionTTL:     durationOr("REGISTRY_SESSION_TTL", 24*time.Hour),
		KeygenTimeout:  durationOr("REGISTRY_KEYGEN_TIMEOUT", 5*time.Second),
		NotifyTimeout:  durationOr("REGISTRY_NOTIFY_TIMEOUT", 5*time.Second),
		DIDMaxAttempts: intOr("REGISTRY_DID_MAX_ATTEMPTS", 5),
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
