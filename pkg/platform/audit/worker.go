package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher inbox into an external sink. Sink failures are
// logged and skipped: the store already holds the durable copy, and audit
// delivery must never stall the approval flow.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.Error("failed to publish audit event",
					"action", event.Action,
					"transaction_id", event.TransactionID,
					"error", err,
				)
			}
		}
	}
}
