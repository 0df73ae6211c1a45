package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quorumpay/internal/approval/registry"
	"quorumpay/internal/approval/store"
	"quorumpay/internal/ledger"
	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
	"quorumpay/pkg/platform/audit"
	auditmemory "quorumpay/pkg/platform/audit/store/memory"
	"quorumpay/pkg/requestcontext"
)

const (
	ownerAlice = domain.Principal("alice")
	ownerBob   = domain.Principal("bob")
	ownerCarol = domain.Principal("carol")
	outsider   = domain.Principal("mallory")
	vendor     = domain.Principal("vendor")
)

type ServiceSuite struct {
	suite.Suite
	svc        *Service
	ledger     *ledger.InMemory
	auditStore *auditmemory.InMemoryStore
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.buildService(2, 1000)
}

// buildService wires a three-owner engine against in-memory collaborators.
// Metrics stay nil so repeated suite setup does not collide on the global
// prometheus registry.
func (s *ServiceSuite) buildService(threshold int, balance int64) {
	reg, err := registry.New([]domain.Principal{ownerAlice, ownerBob, ownerCarol}, threshold)
	s.Require().NoError(err)

	s.ledger = ledger.NewInMemory(balance)
	s.auditStore = auditmemory.NewInMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	publisher := audit.NewPublisher(s.auditStore, 16, logger)

	s.svc = NewService(reg, store.NewInMemory(), s.ledger, publisher, nil, logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) as(p domain.Principal) context.Context {
	return requestcontext.WithPrincipal(s.ctx, p)
}

func (s *ServiceSuite) propose(amount int64) uint64 {
	tx, err := s.svc.Propose(s.as(ownerAlice), vendor, amount)
	s.Require().NoError(err)
	return tx.ID
}

func (s *ServiceSuite) TestPropose() {
	s.Run("assigns sequential ids from zero", func() {
		first, err := s.svc.Propose(s.as(ownerAlice), vendor, 10)
		s.Require().NoError(err)
		s.Equal(uint64(0), first.ID)

		second, err := s.svc.Propose(s.as(ownerBob), vendor, 20)
		s.Require().NoError(err)
		s.Equal(uint64(1), second.ID)
	})

	s.Run("non-owners may propose", func() {
		tx, err := s.svc.Propose(s.as(outsider), vendor, 10)
		s.Require().NoError(err)
		s.Equal(outsider, tx.Proposer)
	})

	s.Run("requires authentication", func() {
		_, err := s.svc.Propose(s.ctx, vendor, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects invalid input", func() {
		_, err := s.svc.Propose(s.as(ownerAlice), "", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.svc.Propose(s.as(ownerAlice), vendor, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("writes a submitted audit event", func() {
		tx, err := s.svc.Propose(s.as(ownerAlice), vendor, 10)
		s.Require().NoError(err)

		events, err := s.auditStore.ListByTransaction(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionSubmitted, events[0].Action)
		s.Equal(ownerAlice, events[0].Actor)
	})
}

func (s *ServiceSuite) TestConfirmBelowThreshold() {
	id := s.propose(100)

	tx, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)
	s.False(tx.Executed)
	s.Equal(1, tx.ConfirmationCount())

	balance, err := s.ledger.Balance(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1000), balance, "no funds move before the threshold")
}

func (s *ServiceSuite) TestThresholdConfirmationExecutes() {
	id := s.propose(100)

	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)

	tx, err := s.svc.Confirm(s.as(ownerBob), id)
	s.Require().NoError(err)
	s.True(tx.Executed)
	s.Require().NotNil(tx.ExecutedAt)

	balance, err := s.ledger.Balance(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(900), balance)

	events, err := s.auditStore.ListByTransaction(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(events, 4) // submitted, confirmed x2, executed
	s.Equal(audit.ActionExecuted, events[3].Action)
	s.Equal(ownerBob, events[3].Actor)
}

func (s *ServiceSuite) TestConfirmAfterExecutionFails() {
	id := s.propose(100)
	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.as(ownerBob), id)
	s.Require().NoError(err)

	_, err = s.svc.Confirm(s.as(ownerCarol), id)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExecuted))

	// The late confirmation left no trace and caused no second transfer.
	tx, err := s.svc.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(2, tx.ConfirmationCount())

	balance, err := s.ledger.Balance(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(900), balance)
}

func (s *ServiceSuite) TestDuplicateConfirmation() {
	s.buildService(3, 1000)
	id := s.propose(100)

	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)

	_, err = s.svc.Confirm(s.as(ownerAlice), id)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyConfirmed))

	tx, err := s.svc.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, tx.ConfirmationCount())
}

func (s *ServiceSuite) TestConfirmAuthorization() {
	id := s.propose(100)

	s.Run("rejects non-owners without mutating", func() {
		_, err := s.svc.Confirm(s.as(outsider), id)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		tx, err := s.svc.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(0, tx.ConfirmationCount())
	})

	s.Run("rejects unauthenticated callers", func() {
		_, err := s.svc.Confirm(s.ctx, id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown transaction", func() {
		_, err := s.svc.Confirm(s.as(ownerAlice), 999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestTransferFailureKeepsConfirmation() {
	s.buildService(2, 50)
	id := s.propose(100) // more than the pool holds

	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)

	_, err = s.svc.Confirm(s.as(ownerBob), id)
	s.True(dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// The quorum stands and the transaction is back to unexecuted.
	tx, err := s.svc.Get(s.ctx, id)
	s.Require().NoError(err)
	s.False(tx.Executed)
	s.Equal(2, tx.ConfirmationCount())
	s.True(tx.HasConfirmed(ownerBob))

	events, err := s.auditStore.ListByTransaction(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(events, 4) // submitted, confirmed x2, transfer_failed
	s.Equal(audit.ActionTransferFailed, events[3].Action)
}

func (s *ServiceSuite) TestRetry() {
	s.buildService(2, 50)
	id := s.propose(100)

	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.as(ownerBob), id)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeTransferFailed))

	s.Run("fails again while funds are short", func() {
		_, err := s.svc.Retry(s.as(ownerCarol), id)
		s.True(dErrors.HasCode(err, dErrors.CodeTransferFailed))
	})

	s.Run("succeeds after a deposit", func() {
		s.Require().NoError(s.ledger.Deposit(s.ctx, 100))

		tx, err := s.svc.Retry(s.as(ownerCarol), id)
		s.Require().NoError(err)
		s.True(tx.Executed)

		balance, err := s.ledger.Balance(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(50), balance)
	})

	s.Run("rejects a second retry", func() {
		_, err := s.svc.Retry(s.as(ownerCarol), id)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExecuted))
	})
}

func (s *ServiceSuite) TestRetryRequiresQuorum() {
	id := s.propose(100)
	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)

	_, err = s.svc.Retry(s.as(ownerBob), id)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = s.svc.Retry(s.as(outsider), id)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestListAndCount() {
	s.propose(10)
	id := s.propose(20)
	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.as(ownerBob), id)
	s.Require().NoError(err)

	count, err := s.svc.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)

	txs, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(txs, 2)
	s.False(txs[0].Executed)
	s.True(txs[1].Executed, "executed transactions stay in the log")
}

// TestConcurrentConfirmationsExecuteOnce races the two confirmations that
// complete the quorum against each other. Whatever the interleaving, funds
// move exactly once.
func (s *ServiceSuite) TestConcurrentConfirmationsExecuteOnce() {
	id := s.propose(100)
	_, err := s.svc.Confirm(s.as(ownerAlice), id)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for _, owner := range []domain.Principal{ownerBob, ownerCarol} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.svc.Confirm(s.as(owner), id)
		}()
	}
	wg.Wait()

	tx, err := s.svc.Get(s.ctx, id)
	s.Require().NoError(err)
	s.True(tx.Executed)

	balance, err := s.ledger.Balance(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(900), balance, "the transfer ran exactly once")
}

func (s *ServiceSuite) TestInjectedClockStampsTransitions() {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.as(ownerAlice), fixed)

	tx, err := s.svc.Propose(ctx, vendor, 10)
	s.Require().NoError(err)
	s.Equal(fixed, tx.CreatedAt)

	tx, err = s.svc.Confirm(ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(fixed, tx.UpdatedAt)
}
