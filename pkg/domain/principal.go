package domain

import (
	"strings"

	dErrors "quorumpay/pkg/domain-errors"
)

// Principal identifies an actor on the hosting value-transfer platform: a
// treasury owner, a proposer, or a transfer recipient. The identity provider
// authenticates principals; this package only enforces shape.
//
// Invariant: a Principal is non-empty and at most 128 characters. Construct
// via ParsePrincipal at trust boundaries; direct casting bypasses validation.
type Principal string

const maxPrincipalLen = 128

// ParsePrincipal constructs a Principal from external input.
//
// Errors: CodeValidation when the value is empty, blank, or too long.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "principal cannot be empty")
	}
	if len(s) > maxPrincipalLen {
		return "", dErrors.New(dErrors.CodeValidation, "principal must be 128 characters or less")
	}
	return Principal(s), nil
}

// String returns the string representation of the principal.
func (p Principal) String() string {
	return string(p)
}

// IsNil returns true if the principal is empty.
func (p Principal) IsNil() bool {
	return p == ""
}
