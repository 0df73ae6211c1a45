// Package registry holds the fixed owner set and approval threshold.
//
// The set is immutable after construction: there is deliberately no path to
// grant or revoke ownership at runtime, because dynamic membership would
// reopen invariants this engine relies on (confirmations referencing removed
// owners, threshold renormalization).
package registry

import (
	"fmt"

	"quorumpay/pkg/domain"
)

// Registry answers "is this caller an owner" and "how many confirmations are
// needed". Safe for concurrent use; nothing mutates it after New.
type Registry struct {
	owners    []domain.Principal
	ownerSet  map[domain.Principal]struct{}
	threshold int
}

// New validates and builds a Registry.
//
// Construction fails when:
//   - fewer than two owners are configured
//   - any owner is empty or appears twice
//   - threshold is outside (0, len(owners)]
//
// A failure here is a fatal configuration error, not a runtime condition;
// callers are expected to abort startup.
func New(owners []domain.Principal, threshold int) (*Registry, error) {
	if len(owners) < 2 {
		return nil, fmt.Errorf("owner set must have more than one entry, got %d", len(owners))
	}

	set := make(map[domain.Principal]struct{}, len(owners))
	kept := make([]domain.Principal, 0, len(owners))
	for i, owner := range owners {
		if owner.IsNil() {
			return nil, fmt.Errorf("owner at position %d is empty", i)
		}
		if _, dup := set[owner]; dup {
			return nil, fmt.Errorf("duplicate owner %q", owner)
		}
		set[owner] = struct{}{}
		kept = append(kept, owner)
	}

	if threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %d", threshold)
	}
	if threshold > len(kept) {
		return nil, fmt.Errorf("threshold %d exceeds owner count %d", threshold, len(kept))
	}

	return &Registry{owners: kept, ownerSet: set, threshold: threshold}, nil
}

// IsOwner reports whether p belongs to the configured owner set.
func (r *Registry) IsOwner(p domain.Principal) bool {
	_, ok := r.ownerSet[p]
	return ok
}

// Threshold returns the number of distinct confirmations required before a
// transaction executes.
func (r *Registry) Threshold() int {
	return r.threshold
}

// OwnerCount returns the size of the owner set.
func (r *Registry) OwnerCount() int {
	return len(r.owners)
}

// Owners returns the owner set in configuration order. The slice is a copy.
func (r *Registry) Owners() []domain.Principal {
	out := make([]domain.Principal, len(r.owners))
	copy(out, r.owners)
	return out
}
