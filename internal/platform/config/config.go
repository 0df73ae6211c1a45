package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	stringsutil "quorumpay/pkg/platform/strings"
)

// Config captures everything the server needs from the environment so main
// stays lean. Owner set and threshold validation happens in the approval
// registry; a violation there is fatal at startup.
type Config struct {
	Addr string

	// Owners is the fixed set of principals that may confirm transfers,
	// comma-separated in QUORUMPAY_OWNERS. Immutable for the process
	// lifetime.
	Owners    []string
	Threshold int

	JWTSigningKey string
	JWTIssuer     string

	// AdminTokenHash is the bcrypt hash of the operator token guarding
	// admin endpoints. Empty disables the admin surface.
	AdminTokenHash string

	// PostgresURL enables durable transaction and audit storage. Empty
	// falls back to in-memory stores (development mode).
	PostgresURL string

	// RedisURL enables the distributed rate limiter. Empty falls back to
	// the in-memory sliding window.
	RedisURL string

	// KafkaBrokers enables publishing audit events to KafkaTopic for
	// external indexing. Empty disables the sink.
	KafkaBrokers []string
	KafkaTopic   string

	// OTELEndpoint enables span export to an OTLP collector. Empty leaves
	// tracing as a no-op.
	OTELEndpoint string

	// InitialBalance seeds the in-memory ledger pool (minor units).
	InitialBalance int64

	ProposeRateLimit  int
	ProposeRateWindow time.Duration

	AuditBufferSize int

	// DevTokenEndpoint mounts POST /auth/token, which mints a token for any
	// named principal without credentials. Development only; never enable
	// where the service is reachable by untrusted callers.
	DevTokenEndpoint bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:              envOr("QUORUMPAY_ADDR", ":8080"),
		Owners:            splitList(os.Getenv("QUORUMPAY_OWNERS")),
		Threshold:         envInt("QUORUMPAY_THRESHOLD", 0),
		JWTSigningKey:     os.Getenv("QUORUMPAY_JWT_SIGNING_KEY"),
		JWTIssuer:         envOr("QUORUMPAY_JWT_ISSUER", "quorumpay"),
		AdminTokenHash:    os.Getenv("QUORUMPAY_ADMIN_TOKEN_HASH"),
		PostgresURL:       os.Getenv("QUORUMPAY_POSTGRES_URL"),
		RedisURL:          os.Getenv("QUORUMPAY_REDIS_URL"),
		KafkaBrokers:      stringsutil.DedupeAndTrim(splitList(os.Getenv("QUORUMPAY_KAFKA_BROKERS"))),
		KafkaTopic:        envOr("QUORUMPAY_KAFKA_TOPIC", "quorumpay.audit"),
		OTELEndpoint:      os.Getenv("QUORUMPAY_OTEL_ENDPOINT"),
		InitialBalance:    int64(envInt("QUORUMPAY_INITIAL_BALANCE", 0)),
		ProposeRateLimit:  envInt("QUORUMPAY_PROPOSE_RATE_LIMIT", 30),
		ProposeRateWindow: envDuration("QUORUMPAY_PROPOSE_RATE_WINDOW", time.Minute),
		AuditBufferSize:   envInt("QUORUMPAY_AUDIT_BUFFER", 256),
		DevTokenEndpoint:  envBool("QUORUMPAY_DEV_TOKEN_ENDPOINT", false),
	}
	if cfg.JWTSigningKey == "" {
		// Development default - must be overridden in production.
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

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
