package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the explicit process configuration. Components receive the values
// they need at construction time; nothing reads the environment after startup.
type Config struct {
	Addr string

	// PostgresURL selects the Postgres-backed stores when set. Empty means
	// in-memory stores, which is the mode unit tests and local demos run in.
	PostgresURL string

	// RedisURL enables the claim-attempt throttle when set.
	RedisURL string

	// JWTSigningKey verifies bearer tokens minted by the host application.
	JWTSigningKey string

	// BaseURL is prepended to claim paths when building invitation links.
	BaseURL string

	// ClaimAttemptLimit and ClaimAttemptWindow bound claim-by-code guesses
	// per client identity.
	ClaimAttemptLimit  int
	ClaimAttemptWindow time.Duration

	// AuditBuffer is the capacity of the audit worker inbox.
	AuditBuffer int
}

// RedisConfig carries connection tuning for the optional Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// Defaults are baked in here; the host application overrides at startup.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("LAUREL_ADDR", ":8080"),
		PostgresURL:        os.Getenv("LAUREL_POSTGRES_URL"),
		RedisURL:           os.Getenv("LAUREL_REDIS_URL"),
		JWTSigningKey:      envOr("LAUREL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		BaseURL:            envOr("LAUREL_BASE_URL", "http://localhost:8080"),
		ClaimAttemptLimit:  envIntOr("LAUREL_CLAIM_ATTEMPT_LIMIT", 10),
		ClaimAttemptWindow: envDurationOr("LAUREL_CLAIM_ATTEMPT_WINDOW", time.Minute),
		AuditBuffer:        envIntOr("LAUREL_AUDIT_BUFFER", 256),
	}
	return cfg
}

// Redis derives connection settings for the optional Redis client.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
