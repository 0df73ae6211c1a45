package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quorumpay/internal/approval/models"
	"quorumpay/pkg/domain"
	"quorumpay/pkg/platform/sentinel"
)

// Postgres implements TransactionStore on PostgreSQL. Per-transaction
// serialization uses SELECT ... FOR UPDATE on the transactions row, so rows
// with different ids are processed in parallel.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// The id sequence starts at 0 to match the log contract: the first submitted
// transaction has id 0.
const schema = `
CREATE SEQUENCE IF NOT EXISTS transactions_id_seq MINVALUE 0 START 0;
CREATE TABLE IF NOT EXISTS transactions (
	id          BIGINT PRIMARY KEY,
	recipient   TEXT NOT NULL,
	amount      BIGINT NOT NULL,
	proposer    TEXT NOT NULL DEFAULT '',
	executed    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	executed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS confirmations (
	transaction_id BIGINT NOT NULL REFERENCES transactions (id),
	owner          TEXT NOT NULL,
	confirmed_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (transaction_id, owner)
);
`

// EnsureSchema creates the log tables when they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure transaction schema: %w", err)
	}
	return nil
}

func (s *Postgres) Submit(ctx context.Context, tx *models.Transaction) (uint64, error) {
	query := `
		INSERT INTO transactions (id, recipient, amount, proposer, executed, created_at, updated_at)
		VALUES (nextval('transactions_id_seq'), $1, $2, $3, FALSE, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		tx.Recipient.String(),
		tx.Amount,
		tx.Proposer.String(),
		tx.CreatedAt,
		tx.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID = uint64(id)
	return tx.ID, nil
}

func (s *Postgres) FindByID(ctx context.Context, id uint64) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT id, recipient, amount, proposer, executed, created_at, updated_at, executed_at
		FROM transactions WHERE id = $1
	`, int64(id)))
	if err != nil {
		return nil, err
	}

	tx.Confirmations, err = s.loadConfirmations(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, amount, proposer, executed, created_at, updated_at, executed_at
		FROM transactions ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for _, tx := range out {
		tx.Confirmations, err = s.loadConfirmations(ctx, s.db, tx.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Postgres) Execute(ctx context.Context, id uint64, fn func(tx *models.Transaction) error) (*models.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck // no-op after commit

	// Row lock is the per-transaction critical section.
	tx, err := scanTransaction(dbTx.QueryRowContext(ctx, `
		SELECT id, recipient, amount, proposer, executed, created_at, updated_at, executed_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`, int64(id)))
	if err != nil {
		return nil, err
	}
	tx.Confirmations, err = s.loadConfirmations(ctx, dbTx, id)
	if err != nil {
		return nil, err
	}

	before := len(tx.Confirmations)
	fnErr := fn(tx)

	// Persist fn's mutations regardless of fnErr: a confirmation recorded
	// before a failed transfer attempt must survive.
	for _, owner := range tx.Confirmations[before:] {
		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO confirmations (transaction_id, owner, confirmed_at)
			VALUES ($1, $2, $3)
		`, int64(id), owner.String(), tx.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert confirmation: %w", err)
		}
	}
	var executedAt *time.Time
	if tx.ExecutedAt != nil {
		at := *tx.ExecutedAt
		executedAt = &at
	}
	_, err = dbTx.ExecContext(ctx, `
		UPDATE transactions SET executed = $2, updated_at = $3, executed_at = $4 WHERE id = $1
	`, int64(id), tx.Executed, tx.UpdatedAt, executedAt)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tx, fnErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx         models.Transaction
		id         int64
		recipient  string
		proposer   string
		executedAt sql.NullTime
	)
	err := row.Scan(&id, &recipient, &tx.Amount, &proposer, &tx.Executed,
		&tx.CreatedAt, &tx.UpdatedAt, &executedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	tx.ID = uint64(id)
	tx.Recipient = domain.Principal(recipient)
	tx.Proposer = domain.Principal(proposer)
	if executedAt.Valid {
		at := executedAt.Time
		tx.ExecutedAt = &at
	}
	return &tx, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) loadConfirmations(ctx context.Context, q querier, id uint64) ([]domain.Principal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT owner FROM confirmations WHERE transaction_id = $1 ORDER BY confirmed_at, owner
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query confirmations: %w", err)
	}
	defer rows.Close()

	var owners []domain.Principal
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		owners = append(owners, domain.Principal(owner))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmations: %w", err)
	}
	return owners, nil
}
