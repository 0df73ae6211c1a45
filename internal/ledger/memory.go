package ledger

import (
	"context"
	"sync"

	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
	"quorumpay/pkg/platform/sentinel"
)

// InMemory is a single-pool ledger for development and tests. The hosting
// platform supplies the real ledger in production.
type InMemory struct {
	mu      sync.Mutex
	balance int64
}

func NewInMemory(initialBalance int64) *InMemory {
	return &InMemory{balance: initialBalance}
}

func (l *InMemory) Transfer(_ context.Context, recipient domain.Principal, amount int64) error {
	if recipient.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance < amount {
		return sentinel.ErrInsufficientFunds
	}
	l.balance -= amount
	return nil
}

func (l *InMemory) Balance(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, nil
}

func (l *InMemory) Deposit(_ context.Context, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
	return nil
}
