package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// RequireAdminToken guards operator endpoints with a shared token compared
// against a bcrypt hash. An empty hash disables the admin surface entirely.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Admin surface disabled")
				return
			}
			token := r.Header.Get("X-Admin-Token")
			if token == "" {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Missing admin token")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.WarnContext(r.Context(), "admin token rejected",
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
