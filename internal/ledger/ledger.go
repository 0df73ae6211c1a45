// Package ledger abstracts the value-transfer platform holding the pooled
// funds. The approval engine only ever calls Transfer during execution and
// treats any failure as opaque: no retry, no balance introspection beyond
// the failure signal.
package ledger

import (
	"context"

	"quorumpay/pkg/domain"
)

// Ledger moves pooled value. Implementations decide what "insufficient
// funds" means; they signal it with sentinel.ErrInsufficientFunds.
type Ledger interface {
	// Transfer moves amount from the pool to recipient.
	Transfer(ctx context.Context, recipient domain.Principal, amount int64) error

	// Balance reports the pooled balance.
	Balance(ctx context.Context) (int64, error)

	// Deposit adds funds to the pool.
	Deposit(ctx context.Context, amount int64) error
}
