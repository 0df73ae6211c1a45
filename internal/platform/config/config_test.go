package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := FromEnv()

		assert.Equal(t, ":8080", cfg.Addr)
		assert.Empty(t, cfg.Owners)
		assert.Zero(t, cfg.Threshold)
		assert.NotEmpty(t, cfg.JWTSigningKey)
		assert.Equal(t, 30, cfg.ProposeRateLimit)
		assert.Equal(t, time.Minute, cfg.ProposeRateWindow)
		assert.Equal(t, "quorumpay.audit", cfg.KafkaTopic)
		assert.False(t, cfg.DevTokenEndpoint)
	})

	t.Run("parses owner list", func(t *testing.T) {
		t.Setenv("QUORUMPAY_OWNERS", "alice, bob ,carol")
		t.Setenv("QUORUMPAY_THRESHOLD", "2")

		cfg := FromEnv()
		assert.Equal(t, []string{"alice", "bob", "carol"}, cfg.Owners)
		assert.Equal(t, 2, cfg.Threshold)
	})

	t.Run("duplicate owners are preserved for the registry to reject", func(t *testing.T) {
		t.Setenv("QUORUMPAY_OWNERS", "alice,alice")

		cfg := FromEnv()
		assert.Equal(t, []string{"alice", "alice"}, cfg.Owners)
	})

	t.Run("dedupes broker list", func(t *testing.T) {
		t.Setenv("QUORUMPAY_KAFKA_BROKERS", "b1:9092, b2:9092 ,b1:9092")

		cfg := FromEnv()
		assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	})

	t.Run("invalid numbers fall back to defaults", func(t *testing.T) {
		t.Setenv("QUORUMPAY_PROPOSE_RATE_LIMIT", "lots")
		t.Setenv("QUORUMPAY_PROPOSE_RATE_WINDOW", "soon")

		cfg := FromEnv()
		assert.Equal(t, 30, cfg.ProposeRateLimit)
		assert.Equal(t, time.Minute, cfg.ProposeRateWindow)
	})
}
