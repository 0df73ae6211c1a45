package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the ledger return
// these (optionally wrapped) so services can translate them into coded
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: transaction does not exist in the log
// - ErrInsufficientFunds: pooled balance cannot cover the transfer
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
