package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"quorumpay/pkg/requestcontext"
)

// Middleware enforces a per-principal limit on the wrapped routes. On store
// failure it fails open: losing rate limiting is preferable to refusing all
// proposals.
func Middleware(store Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.Principal(ctx).String()
			if key == "" {
				key = r.RemoteAddr
			}

			result, err := store.Allow(ctx, key, limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed, allowing request",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
