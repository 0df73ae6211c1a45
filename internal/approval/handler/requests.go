package handler

import (
	"strings"

	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
)

// ProposeRequest is the HTTP request body for POST /transactions.
type ProposeRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`

	// Parsed values (populated by Validate)
	parsedRecipient domain.Principal
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ProposeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Recipient = strings.TrimSpace(r.Recipient)
	if r.Recipient == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	recipient, err := domain.ParsePrincipal(r.Recipient)
	if err != nil {
		return err
	}
	r.parsedRecipient = recipient

	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

// ParsedRecipient returns the validated recipient.
func (r *ProposeRequest) ParsedRecipient() domain.Principal {
	return r.parsedRecipient
}
