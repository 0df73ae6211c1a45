// Package admin exposes the operator-only audit surface. The router mounts
// it behind the admin token middleware; nothing here is reachable with a
// regular caller token.
package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "quorumpay/pkg/domain-errors"
	"quorumpay/pkg/platform/audit"
	"quorumpay/pkg/platform/httputil"
)

const defaultEventLimit = 100

// Handler serves audit queries for operators.
type Handler struct {
	audit  *audit.Publisher
	logger *slog.Logger
}

func New(auditPub *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{audit: auditPub, logger: logger}
}

// RegisterAdmin mounts admin endpoints on the router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit/events", h.HandleListEvents)
}

// EventResponse is the HTTP representation of one audit event.
type EventResponse struct {
	ID            string    `json:"id"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
	TransactionID uint64    `json:"transaction_id"`
	Actor         string    `json:"actor"`
	Recipient     string    `json:"recipient,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
}

// EventsResponse is the HTTP response for GET /admin/audit/events.
type EventsResponse struct {
	Events []EventResponse `json:"events"`
	Count  int             `json:"count"`
}

// HandleListEvents handles GET /admin/audit/events requests. With a
// transaction_id query parameter it returns that transaction's trail;
// otherwise the most recent events across the log, newest first.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		events []audit.Event
		err    error
	)
	if raw := r.URL.Query().Get("transaction_id"); raw != "" {
		txID, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "transaction_id must be a non-negative integer"))
			return
		}
		events, err = h.audit.ListByTransaction(ctx, txID)
	} else {
		limit := defaultEventLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, parseErr := strconv.Atoi(raw)
			if parseErr != nil || parsed <= 0 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}
		events, err = h.audit.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit query failed"))
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, EventResponse{
			ID:            event.ID.String(),
			Action:        string(event.Action),
			Timestamp:     event.Timestamp,
			TransactionID: event.TransactionID,
			Actor:         event.Actor.String(),
			Recipient:     event.Recipient.String(),
			Amount:        event.Amount,
			Reason:        event.Reason,
			RequestID:     event.RequestID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, &EventsResponse{Events: out, Count: len(out)})
}
