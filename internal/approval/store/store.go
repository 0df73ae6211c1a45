// Package store persists the append-only transaction log and serializes
// per-transaction state changes.
package store

import (
	"context"

	"quorumpay/internal/approval/models"
)

// TransactionStore is the append-only log of proposed transfers. Entries are
// never deleted; ids are sequential from 0 and never reused.
//
// Execute is the per-transaction critical section: fn runs while the store
// holds the transaction's lock (a mutex in memory, SELECT ... FOR UPDATE in
// Postgres), so two confirmations for the same id cannot interleave their
// check-then-act sequences. Mutations made by fn are persisted even when fn
// returns an error - a recorded confirmation must survive a failed transfer
// attempt. Different ids are independent and proceed in parallel.
//
// Stores return sentinel errors (sentinel.ErrNotFound) for infrastructure
// facts; services translate them into coded domain errors.
type TransactionStore interface {
	// Submit assigns the next sequential id to tx and appends it.
	Submit(ctx context.Context, tx *models.Transaction) (uint64, error)

	// FindByID returns a copy of the transaction.
	FindByID(ctx context.Context, id uint64) (*models.Transaction, error)

	// Count returns the number of submitted transactions.
	Count(ctx context.Context) (int, error)

	// List returns copies of all transactions in submission order.
	List(ctx context.Context) ([]*models.Transaction, error)

	// Execute runs fn under the transaction's critical section and
	// persists fn's mutations, returning the resulting state and fn's
	// error.
	Execute(ctx context.Context, id uint64, fn func(tx *models.Transaction) error) (*models.Transaction, error)
}
