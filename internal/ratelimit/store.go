// Package ratelimit throttles proposal submissions per principal with a
// sliding window, in memory for a single instance or on Redis for a fleet.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time

	// RetryAfter is the suggested wait in whole seconds, only meaningful
	// when Allowed is false.
	RetryAfter int
}

// Store counts requests per key within a sliding window.
type Store interface {
	// Allow records the request when under the limit and reports whether
	// it may proceed.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}
