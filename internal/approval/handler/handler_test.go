package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"quorumpay/internal/approval/registry"
	"quorumpay/internal/approval/service"
	"quorumpay/internal/approval/store"
	"quorumpay/internal/jwtauth"
	"quorumpay/internal/ledger"
	"quorumpay/internal/platform/middleware"
	"quorumpay/pkg/domain"
	"quorumpay/pkg/platform/audit"
	auditmemory "quorumpay/pkg/platform/audit/store/memory"
)

// HandlerSuite runs the full router with real components: in-memory stores,
// the real service, and real JWT validation.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	tokens *jwtauth.Service
	ledger *ledger.InMemory
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	reg, err := registry.New([]domain.Principal{"alice", "bob", "carol"}, 2)
	require.NoError(s.T(), err)

	logger := slog.New(slog.DiscardHandler)
	s.ledger = ledger.NewInMemory(1000)
	publisher := audit.NewPublisher(auditmemory.NewInMemoryStore(), 16, logger)
	svc := service.NewService(reg, store.NewInMemory(), s.ledger, publisher, nil, logger)

	s.tokens = jwtauth.NewService("test-signing-key", "quorumpay-test")

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.tokens, logger))
		New(svc, logger).Register(r)
	})
	s.router = r
}

func (s *HandlerSuite) request(method, path, principal string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		token, err := s.tokens.GenerateToken(principal, time.Hour)
		require.NoError(s.T(), err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) propose(principal string, amount int64) uint64 {
	rec := s.request(http.MethodPost, "/transactions", principal,
		ProposeRequest{Recipient: "vendor", Amount: amount})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var resp TransactionResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	return resp.ID
}

func (s *HandlerSuite) confirm(principal string, id uint64) *httptest.ResponseRecorder {
	return s.request(http.MethodPost, fmt.Sprintf("/transactions/%d/confirmations", id), principal, nil)
}

func (s *HandlerSuite) TestPropose() {
	s.Run("creates a transaction", func() {
		rec := s.request(http.MethodPost, "/transactions", "alice",
			ProposeRequest{Recipient: "vendor", Amount: 100})
		s.Equal(http.StatusCreated, rec.Code, rec.Body.String())

		var resp TransactionResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(uint64(0), resp.ID)
		s.Equal("vendor", resp.Recipient)
		s.False(resp.Executed)
		s.Empty(resp.Confirmations)
	})

	s.Run("rejects missing token", func() {
		rec := s.request(http.MethodPost, "/transactions", "",
			ProposeRequest{Recipient: "vendor", Amount: 100})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("rejects invalid JSON", func() {
		req := httptest.NewRequest(http.MethodPost, "/transactions",
			bytes.NewReader([]byte("not valid json")))
		token, err := s.tokens.GenerateToken("alice", time.Hour)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects zero amount", func() {
		rec := s.request(http.MethodPost, "/transactions", "alice",
			ProposeRequest{Recipient: "vendor", Amount: 0})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestConfirmFlow() {
	id := s.propose("alice", 100)

	rec := s.confirm("alice", id)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp TransactionResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.False(resp.Executed)
	s.Equal(1, resp.ConfirmationCount)

	rec = s.confirm("bob", id)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.True(resp.Executed)
	s.NotNil(resp.ExecutedAt)
}

func (s *HandlerSuite) TestConfirmErrors() {
	id := s.propose("alice", 100)

	s.Run("duplicate confirmation conflicts", func() {
		s.Require().Equal(http.StatusOK, s.confirm("alice", id).Code)
		rec := s.confirm("alice", id)
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "already_confirmed")
	})

	s.Run("non-owner is forbidden", func() {
		rec := s.confirm("mallory", id)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("unknown transaction is not found", func() {
		rec := s.confirm("bob", 999)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("confirmation after execution conflicts", func() {
		s.Require().Equal(http.StatusOK, s.confirm("bob", id).Code)
		rec := s.confirm("carol", id)
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "already_executed")
	})

	s.Run("non-numeric id is rejected", func() {
		rec := s.request(http.MethodPost, "/transactions/abc/confirmations", "alice", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRetryAfterTransferFailure() {
	// Drain the pool so execution fails at quorum.
	s.Require().NoError(s.ledger.Transfer(s.T().Context(), "drain", 950))

	id := s.propose("alice", 100)
	s.Require().Equal(http.StatusOK, s.confirm("alice", id).Code)

	rec := s.confirm("bob", id)
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), "transfer_failed")

	// Top the pool back up and retry through the dedicated endpoint.
	s.Require().NoError(s.ledger.Deposit(s.T().Context(), 100))
	rec = s.request(http.MethodPost, fmt.Sprintf("/transactions/%d/execute", id), "carol", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp TransactionResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.True(resp.Executed)
}

func (s *HandlerSuite) TestGetAndList() {
	first := s.propose("alice", 10)
	s.propose("bob", 20)

	s.Run("get by id", func() {
		rec := s.request(http.MethodGet, fmt.Sprintf("/transactions/%d", first), "alice", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp TransactionResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(int64(10), resp.Amount)
	})

	s.Run("get unknown id", func() {
		rec := s.request(http.MethodGet, "/transactions/999", "alice", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("list in submission order", func() {
		rec := s.request(http.MethodGet, "/transactions", "alice", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp ListResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Require().Equal(2, resp.Count)
		s.Equal(uint64(0), resp.Transactions[0].ID)
		s.Equal(uint64(1), resp.Transactions[1].ID)
	})
}

func (s *HandlerSuite) TestOwners() {
	rec := s.request(http.MethodGet, "/owners", "alice", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp OwnersResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Equal([]string{"alice", "bob", "carol"}, resp.Owners)
	s.Equal(2, resp.Threshold)
}

func (s *HandlerSuite) TestTreasury() {
	id := s.propose("alice", 100)
	s.Require().Equal(http.StatusOK, s.confirm("alice", id).Code)
	s.Require().Equal(http.StatusOK, s.confirm("bob", id).Code)

	rec := s.request(http.MethodGet, "/treasury", "alice", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp TreasuryResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Equal(int64(900), resp.Balance)
	s.Equal(1, resp.TransactionCount)
}
