package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit events. Persistence is synchronous so
// the durable trail is written before the triggering operation returns;
// delivery to external sinks is decoupled through a buffered inbox drained by
// the Worker.
type Publisher struct {
	store  Store
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher backed by store. bufferSize bounds the
// sink inbox; when the inbox is full events are logged and dropped rather
// than blocking the approval flow.
func NewPublisher(store Store, bufferSize int, logger *slog.Logger) *Publisher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Publisher{
		store:  store,
		inbox:  make(chan Event, bufferSize),
		logger: logger,
	}
}

// Emit records the event. Missing IDs and timestamps are filled in.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit sink inbox full, dropping event",
			"action", event.Action,
			"transaction_id", event.TransactionID,
		)
	}
	return nil
}

// Inbox exposes the sink inbox for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// ListByTransaction returns the audit trail for one transaction.
func (p *Publisher) ListByTransaction(ctx context.Context, txID uint64) ([]Event, error) {
	return p.store.ListByTransaction(ctx, txID)
}

// ListRecent returns the most recent events across all transactions.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}
