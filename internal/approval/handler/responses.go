package handler

import (
	"time"

	"quorumpay/internal/approval/models"
)

// TransactionResponse is the HTTP representation of a logged transaction.
type TransactionResponse struct {
	ID                uint64     `json:"id"`
	Recipient         string     `json:"recipient"`
	Amount            int64      `json:"amount"`
	Executed          bool       `json:"executed"`
	Confirmations     []string   `json:"confirmations"`
	ConfirmationCount int        `json:"confirmation_count"`
	Proposer          string     `json:"proposer,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ExecutedAt        *time.Time `json:"executed_at,omitempty"`
}

// FromTransaction converts a domain transaction to an HTTP response.
func FromTransaction(tx *models.Transaction) *TransactionResponse {
	confirmations := make([]string, 0, len(tx.Confirmations))
	for _, owner := range tx.Confirmations {
		confirmations = append(confirmations, owner.String())
	}
	return &TransactionResponse{
		ID:                tx.ID,
		Recipient:         tx.Recipient.String(),
		Amount:            tx.Amount,
		Executed:          tx.Executed,
		Confirmations:     confirmations,
		ConfirmationCount: tx.ConfirmationCount(),
		Proposer:          tx.Proposer.String(),
		CreatedAt:         tx.CreatedAt,
		UpdatedAt:         tx.UpdatedAt,
		ExecutedAt:        tx.ExecutedAt,
	}
}

// ListResponse is the HTTP response for GET /transactions.
type ListResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Count        int                    `json:"count"`
}

// FromTransactions converts the full log to an HTTP response.
func FromTransactions(txs []*models.Transaction) *ListResponse {
	out := make([]*TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, FromTransaction(tx))
	}
	return &ListResponse{Transactions: out, Count: len(out)}
}

// OwnersResponse is the HTTP response for GET /owners.
type OwnersResponse struct {
	Owners    []string `json:"owners"`
	Threshold int      `json:"threshold"`
}

// TreasuryResponse is the HTTP response for GET /treasury.
type TreasuryResponse struct {
	Balance          int64 `json:"balance"`
	TransactionCount int   `json:"transaction_count"`
}
