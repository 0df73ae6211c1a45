package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"quorumpay/internal/approval/models"
	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
	"quorumpay/pkg/platform/httputil"
	"quorumpay/pkg/requestcontext"
)

// Service defines the approval operations the handler exposes.
type Service interface {
	Propose(ctx context.Context, recipient domain.Principal, amount int64) (*models.Transaction, error)
	Confirm(ctx context.Context, id uint64) (*models.Transaction, error)
	Retry(ctx context.Context, id uint64) (*models.Transaction, error)
	Get(ctx context.Context, id uint64) (*models.Transaction, error)
	List(ctx context.Context) ([]*models.Transaction, error)
	Count(ctx context.Context) (int, error)
	Balance(ctx context.Context) (int64, error)
	Owners() []domain.Principal
	Threshold() int
}

// Handler wires approval endpoints to the approval service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an approval handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts approval endpoints on the router. The router is expected
// to run authentication middleware before these handlers. proposeMiddleware
// wraps only the proposal route; the rate limiter goes there so reads and
// confirmations stay unthrottled.
func (h *Handler) Register(r chi.Router, proposeMiddleware ...func(http.Handler) http.Handler) {
	r.With(proposeMiddleware...).Post("/transactions", h.HandlePropose)
	r.Get("/transactions", h.HandleList)
	r.Get("/transactions/{id}", h.HandleGet)
	r.Post("/transactions/{id}/confirmations", h.HandleConfirm)
	r.Post("/transactions/{id}/execute", h.HandleRetry)
	r.Get("/owners", h.HandleOwners)
	r.Get("/treasury", h.HandleTreasury)
}

// HandlePropose handles POST /transactions requests.
func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ProposeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Propose(ctx, req.ParsedRecipient(), req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "proposal rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "proposal accepted",
		"request_id", requestID,
		"transaction_id", tx.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromTransaction(tx))
}

// HandleConfirm handles POST /transactions/{id}/confirmations requests.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := transactionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tx, err := h.service.Confirm(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "confirmation rejected",
			"request_id", requestID,
			"transaction_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(tx))
}

// HandleRetry handles POST /transactions/{id}/execute requests. It retries
// the transfer for a fully-confirmed transaction whose earlier execution
// attempt failed.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := transactionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tx, err := h.service.Retry(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "execution retry rejected",
			"request_id", requestID,
			"transaction_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(tx))
}

// HandleGet handles GET /transactions/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tx, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(tx))
}

// HandleList handles GET /transactions requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransactions(txs))
}

// HandleOwners handles GET /owners requests.
func (h *Handler) HandleOwners(w http.ResponseWriter, r *http.Request) {
	owners := h.service.Owners()
	out := make([]string, 0, len(owners))
	for _, owner := range owners {
		out = append(out, owner.String())
	}
	httputil.WriteJSON(w, http.StatusOK, &OwnersResponse{
		Owners:    out,
		Threshold: h.service.Threshold(),
	})
}

// HandleTreasury handles GET /treasury requests.
func (h *Handler) HandleTreasury(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	balance, err := h.service.Balance(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	count, err := h.service.Count(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TreasuryResponse{
		Balance:          balance,
		TransactionCount: count,
	})
}

func transactionID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "transaction id must be a non-negative integer")
	}
	return id, nil
}
