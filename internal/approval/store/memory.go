package store

import (
	"context"
	"sync"

	"quorumpay/internal/approval/models"
	"quorumpay/pkg/platform/sentinel"
)

// entry pairs a stored transaction with its own lock so confirmations for
// different transactions never contend with each other.
type entry struct {
	mu sync.Mutex
	tx *models.Transaction
}

// InMemory keeps the transaction log in process memory. Suitable for tests
// and single-node development; use Postgres for durable deployments.
type InMemory struct {
	mu      sync.RWMutex
	entries []*entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Submit(_ context.Context, tx *models.Transaction) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = uint64(len(s.entries))
	s.entries = append(s.entries, &entry{tx: tx.Clone()})
	return tx.ID, nil
}

func (s *InMemory) FindByID(_ context.Context, id uint64) (*models.Transaction, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tx.Clone(), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Transaction, error) {
	s.mu.RLock()
	entries := append([]*entry(nil), s.entries...)
	s.mu.RUnlock()

	out := make([]*models.Transaction, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.tx.Clone())
		e.mu.Unlock()
	}
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, id uint64, fn func(tx *models.Transaction) error) (*models.Transaction, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// fn mutates the stored transaction directly; its changes stick even
	// when fn fails.
	fnErr := fn(e.tx)
	return e.tx.Clone(), fnErr
}

func (s *InMemory) entry(id uint64) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.entries)) {
		return nil, sentinel.ErrNotFound
	}
	return s.entries[id], nil
}
