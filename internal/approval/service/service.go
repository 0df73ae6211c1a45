// Package service orchestrates the approval flow: proposals enter the log,
// owners confirm, and the confirmation that reaches the threshold triggers
// the transfer inside the same critical section.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"quorumpay/internal/approval/metrics"
	"quorumpay/internal/approval/models"
	"quorumpay/internal/approval/registry"
	"quorumpay/internal/approval/store"
	"quorumpay/internal/ledger"
	"quorumpay/pkg/domain"
	dErrors "quorumpay/pkg/domain-errors"
	"quorumpay/pkg/platform/audit"
	"quorumpay/pkg/platform/sentinel"
	"quorumpay/pkg/requestcontext"
)

const (
	outcomeRecorded        = "recorded"
	outcomeDuplicate       = "duplicate"
	outcomeAlreadyExecuted = "already_executed"
	outcomeRejected        = "rejected"
)

// Service implements the approval engine. It is the only writer of
// transaction state; handlers stay thin and stores stay dumb.
type Service struct {
	registry *registry.Registry
	store    store.TransactionStore
	ledger   ledger.Ledger
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(
	reg *registry.Registry,
	txStore store.TransactionStore,
	led ledger.Ledger,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry: reg,
		store:    txStore,
		ledger:   led,
		audit:    auditPub,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("quorumpay/approval"),
	}
}

// Propose appends a new transfer proposal to the log and returns it with its
// assigned id. Any authenticated principal may propose; moving funds still
// requires the owners' quorum.
func (s *Service) Propose(ctx context.Context, recipient domain.Principal, amount int64) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "approval.propose")
	defer span.End()

	proposer := requestcontext.Principal(ctx)
	if proposer.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	tx, err := models.NewTransaction(proposer, recipient, amount, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	id, err := s.store.Submit(ctx, tx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "submit transaction")
	}
	tx.ID = id
	span.SetAttributes(attribute.Int64("transaction.id", int64(id)))

	s.metrics.IncrementProposed()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionSubmitted,
		TransactionID: id,
		Actor:         proposer,
		Recipient:     recipient,
		Amount:        amount,
	})
	s.logger.InfoContext(ctx, "transaction proposed",
		"transaction_id", id,
		"proposer", proposer.String(),
		"amount", amount,
	)
	return tx, nil
}

// Confirm records the calling owner's confirmation. When the confirmation
// reaches the threshold the transfer runs inside the same critical section.
//
// A failed transfer does not undo the confirmation: the quorum stands, the
// executed flag is reverted, and the transaction waits for a Retry.
func (s *Service) Confirm(ctx context.Context, id uint64) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "approval.confirm",
		trace.WithAttributes(attribute.Int64("transaction.id", int64(id))))
	defer span.End()
	defer s.observeConfirm(time.Now())()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		s.metrics.IncrementConfirmation(outcomeRejected)
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var executed bool
	var transferErr error
	tx, err := s.store.Execute(ctx, id, func(tx *models.Transaction) error {
		if err := tx.CanConfirm(owner); err != nil {
			return err
		}
		tx.ApplyConfirmation(owner, now)

		if tx.ConfirmationCount() < s.registry.Threshold() {
			return nil
		}

		// Mark executed before touching the ledger so any reentrant
		// confirmation attempt observes a finished transaction.
		tx.ApplyExecution(now)
		if transferErr = s.ledger.Transfer(ctx, tx.Recipient, tx.Amount); transferErr != nil {
			tx.RevertExecution()
			return dErrors.Wrap(transferErr, dErrors.CodeTransferFailed, "ledger rejected transfer")
		}
		executed = true
		return nil
	})
	if err != nil {
		return s.finishConfirm(ctx, tx, owner, id, err)
	}

	s.metrics.IncrementConfirmation(outcomeRecorded)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionConfirmed,
		TransactionID: id,
		Actor:         owner,
		Recipient:     tx.Recipient,
		Amount:        tx.Amount,
	})
	if executed {
		s.recordExecution(ctx, tx, owner)
	}
	return tx, nil
}

// finishConfirm classifies a failed Confirm and emits the matching metrics
// and audit events. The transfer-failed path still counts the confirmation
// as recorded because the store persisted it.
func (s *Service) finishConfirm(ctx context.Context, tx *models.Transaction, owner domain.Principal, id uint64, err error) (*models.Transaction, error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeAlreadyConfirmed):
		s.metrics.IncrementConfirmation(outcomeDuplicate)
	case dErrors.HasCode(err, dErrors.CodeAlreadyExecuted):
		s.metrics.IncrementConfirmation(outcomeAlreadyExecuted)
	case dErrors.HasCode(err, dErrors.CodeTransferFailed):
		s.metrics.IncrementConfirmation(outcomeRecorded)
		s.metrics.IncrementTransferFailure()
		s.emit(ctx, audit.Event{
			Action:        audit.ActionConfirmed,
			TransactionID: id,
			Actor:         owner,
			Recipient:     tx.Recipient,
			Amount:        tx.Amount,
		})
		s.emit(ctx, audit.Event{
			Action:        audit.ActionTransferFailed,
			TransactionID: id,
			Actor:         owner,
			Recipient:     tx.Recipient,
			Amount:        tx.Amount,
			Reason:        err.Error(),
		})
		s.logger.ErrorContext(ctx, "transfer failed after quorum",
			"transaction_id", id,
			"error", err,
		)
	default:
		s.metrics.IncrementConfirmation(outcomeRejected)
		err = s.translateStoreErr(err)
	}
	return nil, err
}

// Retry re-attempts the transfer for a transaction that already has the
// required confirmations but whose earlier execution attempt failed. Any
// owner may trigger it; no new confirmation is recorded.
func (s *Service) Retry(ctx context.Context, id uint64) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "approval.retry",
		trace.WithAttributes(attribute.Int64("transaction.id", int64(id))))
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var executed bool
	tx, err := s.store.Execute(ctx, id, func(tx *models.Transaction) error {
		if err := tx.CanExecute(s.registry.Threshold()); err != nil {
			return err
		}
		tx.ApplyExecution(now)
		if terr := s.ledger.Transfer(ctx, tx.Recipient, tx.Amount); terr != nil {
			tx.RevertExecution()
			return dErrors.Wrap(terr, dErrors.CodeTransferFailed, "ledger rejected transfer")
		}
		executed = true
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTransferFailed) {
			s.metrics.IncrementTransferFailure()
			s.emit(ctx, audit.Event{
				Action:        audit.ActionTransferFailed,
				TransactionID: id,
				Actor:         owner,
				Recipient:     tx.Recipient,
				Amount:        tx.Amount,
				Reason:        err.Error(),
			})
			return nil, err
		}
		return nil, s.translateStoreErr(err)
	}

	if executed {
		s.recordExecution(ctx, tx, owner)
	}
	return tx, nil
}

// Get returns one transaction by id.
func (s *Service) Get(ctx context.Context, id uint64) (*models.Transaction, error) {
	tx, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	return tx, nil
}

// List returns all transactions in submission order. The log is permanent,
// so this includes executed transactions.
func (s *Service) List(ctx context.Context) ([]*models.Transaction, error) {
	txs, err := s.store.List(ctx)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	return txs, nil
}

// Count returns the total number of transactions ever submitted.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, s.translateStoreErr(err)
	}
	return count, nil
}

// Balance reports the pooled treasury balance.
func (s *Service) Balance(ctx context.Context) (int64, error) {
	return s.ledger.Balance(ctx)
}

// Owners returns the configured owner set.
func (s *Service) Owners() []domain.Principal {
	return s.registry.Owners()
}

// Threshold returns the configured confirmation threshold.
func (s *Service) Threshold() int {
	return s.registry.Threshold()
}

func (s *Service) requireOwner(ctx context.Context) (domain.Principal, error) {
	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !s.registry.IsOwner(caller) {
		return "", dErrors.New(dErrors.CodeForbidden, "caller is not an owner")
	}
	return caller, nil
}

func (s *Service) recordExecution(ctx context.Context, tx *models.Transaction, actor domain.Principal) {
	s.metrics.IncrementExecuted()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionExecuted,
		TransactionID: tx.ID,
		Actor:         actor,
		Recipient:     tx.Recipient,
		Amount:        tx.Amount,
	})
	s.logger.InfoContext(ctx, "transaction executed",
		"transaction_id", tx.ID,
		"recipient", tx.Recipient.String(),
		"amount", tx.Amount,
	)
}

// emit never fails the calling operation; a broken audit store is logged and
// the approval flow continues.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"transaction_id", event.TransactionID,
			"error", err,
		)
	}
}

func (s *Service) observeConfirm(start time.Time) func() {
	return func() {
		s.metrics.ObserveConfirmLatency(time.Since(start))
	}
}

// translateStoreErr maps store sentinels to coded errors. Already-coded
// errors pass through unchanged.
func (s *Service) translateStoreErr(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "transaction not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}
