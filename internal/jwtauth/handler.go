package jwtauth

import (
	"log/slog"
	"net/http"
	"time"

	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
	"quorumpay/pkg/platform/httputil"
	"quorumpay/pkg/requestcontext"
)

const (
	defaultTokenTTL = time.Hour
	maxTokenTTL     = 24 * time.Hour
)

// Handler mints tokens for a named principal without credentials. It exists
// so local development does not need the platform's identity provider; the
// router mounts it only when explicitly enabled.
type Handler struct {
	tokens *Service
	logger *slog.Logger
}

func NewHandler(tokens *Service, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, logger: logger}
}

// TokenRequest is the HTTP request body for POST /auth/token.
type TokenRequest struct {
	Principal  string `json:"principal"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *TokenRequest) Validate() error {
	if _, err := domain.ParsePrincipal(r.Principal); err != nil {
		return err
	}
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must not be negative")
	}
	if time.Duration(r.TTLSeconds)*time.Second > maxTokenTTL {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds exceeds the 24 hour maximum")
	}
	return nil
}

// TokenResponse is the HTTP response for POST /auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// HandleMintToken handles POST /auth/token requests.
func (h *Handler) HandleMintToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ttl := defaultTokenTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token, err := h.tokens.GenerateToken(req.Principal, ttl)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "mint token"))
		return
	}

	h.logger.InfoContext(ctx, "dev token minted",
		"principal", req.Principal,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, &TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(ttl.Seconds()),
	})
}
