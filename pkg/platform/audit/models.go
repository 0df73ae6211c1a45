package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quorumpay/pkg/domain"
)

// Action names an auditable fact about a transaction's lifecycle.
type Action string

const (
	// ActionSubmitted fires when a transfer proposal is appended to the log.
	ActionSubmitted Action = "transaction_submitted"

	// ActionConfirmed fires when an owner's confirmation is recorded,
	// including the confirmation that triggered a failed execution attempt.
	ActionConfirmed Action = "transaction_confirmed"

	// ActionExecuted fires exactly once per transaction, when the pooled
	// value moves to the recipient.
	ActionExecuted Action = "transaction_executed"

	// ActionTransferFailed fires when the ledger rejects an execution
	// attempt. The transaction stays eligible for retry.
	ActionTransferFailed Action = "transfer_failed"
)

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out. Events feed external
// audit and indexing; the engine never reads them back for control flow.
type Event struct {
	ID            uuid.UUID
	Action        Action
	Timestamp     time.Time
	TransactionID uint64
	// Actor is the principal that caused the action: the proposer for
	// submissions, the confirming owner for confirmations and executions.
	Actor     domain.Principal
	Recipient domain.Principal
	Amount    int64
	Reason    string
	RequestID string
}

// Store persists audit events. Append-only; events are never deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTransaction(ctx context.Context, txID uint64) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives events for out-of-process delivery (e.g. a Kafka topic).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
