package memory

import (
	"context"
	"sync"

	audit "quorumpay/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process memory, indexed by transaction
// id. Intended for tests and single-node development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	byTx   map[uint64][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byTx: make(map[uint64][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.byTx = make(map[uint64][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.byTx[event.TransactionID] = append(s.byTx[event.TransactionID], event)
	return nil
}

func (s *InMemoryStore) ListByTransaction(_ context.Context, txID uint64) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.byTx[txID]...), nil
}

// ListRecent returns the most recent N events in append order.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.events) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.events[start:]...), nil
}
