package models

import (
	"time"

	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
)

// Transaction is a proposed transfer of pooled value, tracked from proposal
// through confirmation to execution.
//
// Invariants:
//   - ID is assigned once by the store, sequential from 0, never reused
//   - Confirmations never contains duplicates and only grows
//   - Executed transitions false -> true at most once
//   - the record is never deleted; the log is permanent history
//
// All reads and writes of (Confirmations, Executed) for one transaction must
// happen inside the store's per-transaction critical section
// (TransactionStore.Execute). The model methods themselves do no locking.
type Transaction struct {
	ID            uint64             `json:"id"`
	Recipient     domain.Principal   `json:"recipient"`
	Amount        int64              `json:"amount"`
	Executed      bool               `json:"executed"`
	Confirmations []domain.Principal `json:"confirmations"`
	Proposer      domain.Principal   `json:"proposer"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	ExecutedAt    *time.Time         `json:"executed_at,omitempty"`
}

// NewTransaction validates proposal input and builds an unexecuted
// transaction with an empty confirmation set. The store assigns the ID.
func NewTransaction(proposer, recipient domain.Principal, amount int64, now time.Time) (*Transaction, error) {
	if recipient.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return &Transaction{
		Recipient: recipient,
		Amount:    amount,
		Proposer:  proposer,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasConfirmed reports whether owner already confirmed this transaction.
func (t *Transaction) HasConfirmed(owner domain.Principal) bool {
	for _, c := range t.Confirmations {
		if c == owner {
			return true
		}
	}
	return false
}

// ConfirmationCount returns the number of distinct confirming owners.
func (t *Transaction) ConfirmationCount() int {
	return len(t.Confirmations)
}

// CanConfirm checks whether owner may add a confirmation. A repeat call is an
// error, not a silent no-op: it signals a caller bug or a replay.
func (t *Transaction) CanConfirm(owner domain.Principal) error {
	if t.Executed {
		return dErrors.New(dErrors.CodeAlreadyExecuted, "transaction already executed")
	}
	if t.HasConfirmed(owner) {
		return dErrors.New(dErrors.CodeAlreadyConfirmed, "owner already confirmed this transaction")
	}
	return nil
}

// ApplyConfirmation records owner's confirmation.
// Call CanConfirm first to validate the transition.
func (t *Transaction) ApplyConfirmation(owner domain.Principal, now time.Time) {
	t.Confirmations = append(t.Confirmations, owner)
	t.UpdatedAt = now
}

// CanExecute checks whether the transaction is eligible for execution.
func (t *Transaction) CanExecute(threshold int) error {
	if t.Executed {
		return dErrors.New(dErrors.CodeAlreadyExecuted, "transaction already executed")
	}
	if t.ConfirmationCount() < threshold {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"insufficient confirmations: %d of %d", t.ConfirmationCount(), threshold)
	}
	return nil
}

// ApplyExecution marks the transaction executed. The flag must be set before
// the external transfer call so a reentrant caller observes the transaction
// as already executed.
func (t *Transaction) ApplyExecution(now time.Time) {
	t.Executed = true
	t.UpdatedAt = now
	t.ExecutedAt = &now
}

// RevertExecution clears the executed flag after a failed transfer. The
// transaction keeps its confirmations and stays eligible for a retry.
func (t *Transaction) RevertExecution() {
	t.Executed = false
	t.ExecutedAt = nil
}

// Clone returns a deep copy so callers outside the store's critical section
// never alias the stored confirmation slice.
func (t *Transaction) Clone() *Transaction {
	out := *t
	out.Confirmations = append([]domain.Principal(nil), t.Confirmations...)
	if t.ExecutedAt != nil {
		at := *t.ExecutedAt
		out.ExecutedAt = &at
	}
	return &out
}
