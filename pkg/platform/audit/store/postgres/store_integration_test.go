//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quorumpay/pkg/platform/audit"
	"quorumpay/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *Store
	ctx       context.Context
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.store = New(s.container.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *AuditStoreSuite) SetupTest() {
	_, err := s.container.DB.ExecContext(s.ctx, `TRUNCATE audit_events`)
	s.Require().NoError(err)
}

func (s *AuditStoreSuite) newEvent(action audit.Action, txID uint64) audit.Event {
	return audit.Event{
		ID:            uuid.New(),
		Action:        action,
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
		TransactionID: txID,
		Actor:         "alice",
		Recipient:     "vendor",
		Amount:        100,
	}
}

func (s *AuditStoreSuite) TestAppendAndListByTransaction() {
	first := s.newEvent(audit.ActionSubmitted, 0)
	second := s.newEvent(audit.ActionConfirmed, 0)
	second.Timestamp = first.Timestamp.Add(time.Second)
	other := s.newEvent(audit.ActionSubmitted, 1)

	for _, event := range []audit.Event{first, second, other} {
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	events, err := s.store.ListByTransaction(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(first.ID, events[0].ID)
	s.Equal(second.ID, events[1].ID)
}

func (s *AuditStoreSuite) TestAppendIsIdempotent() {
	event := s.newEvent(audit.ActionExecuted, 0)

	s.Require().NoError(s.store.Append(s.ctx, event))
	s.Require().NoError(s.store.Append(s.ctx, event))

	events, err := s.store.ListByTransaction(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *AuditStoreSuite) TestListRecent() {
	for i := range uint64(5) {
		event := s.newEvent(audit.ActionSubmitted, i)
		event.Timestamp = event.Timestamp.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	events, err := s.store.ListRecent(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(uint64(4), events[0].TransactionID, "newest first")
}
