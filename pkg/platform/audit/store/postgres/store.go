package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "quorumpay/pkg/platform/audit"
	"quorumpay/pkg/domain"
)

// Store implements audit.Store on PostgreSQL. Inserts are idempotent via
// ON CONFLICT DO NOTHING so replayed events from the sink side never
// duplicate rows.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id             UUID PRIMARY KEY,
	action         TEXT NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	transaction_id BIGINT NOT NULL,
	actor          TEXT NOT NULL,
	recipient      TEXT NOT NULL DEFAULT '',
	amount         BIGINT NOT NULL DEFAULT 0,
	reason         TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_tx_idx ON audit_events (transaction_id, timestamp);
`

// EnsureSchema creates the audit table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, action, timestamp, transaction_id, actor,
			recipient, amount, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.Timestamp,
		int64(event.TransactionID),
		event.Actor.String(),
		event.Recipient.String(),
		event.Amount,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByTransaction(ctx context.Context, txID uint64) ([]audit.Event, error) {
	query := `
		SELECT id, action, timestamp, transaction_id, actor,
		       recipient, amount, reason, request_id
		FROM audit_events
		WHERE transaction_id = $1
		ORDER BY timestamp
	`
	rows, err := s.db.QueryContext(ctx, query, int64(txID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, action, timestamp, transaction_id, actor,
		       recipient, amount, reason, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event     audit.Event
			id        uuid.UUID
			action    string
			txID      int64
			actor     string
			recipient string
		)
		err := rows.Scan(
			&id,
			&action,
			&event.Timestamp,
			&txID,
			&actor,
			&recipient,
			&event.Amount,
			&event.Reason,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ID = id
		event.Action = audit.Action(action)
		event.TransactionID = uint64(txID)
		event.Actor = domain.Principal(actor)
		event.Recipient = domain.Principal(recipient)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
