package testutil

import (
	"net/http"

	"quorumpay/pkg/domain"
	"quorumpay/pkg/requestcontext"
)

// WithPrincipal threads an authenticated principal through the request
// context, simulating what the auth middleware does for valid tokens.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	parsed, err := domain.ParsePrincipal(principal)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), parsed))
}

// WithRequestID threads a correlation id through the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
