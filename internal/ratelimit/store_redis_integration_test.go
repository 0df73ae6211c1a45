//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quorumpay/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	container *containers.RedisContainer
	store     *RedisStore
	ctx       context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.container.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestAllowUnderLimit() {
	for i := 0; i < 3; i++ {
		result, err := s.store.Allow(s.ctx, "alice", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(3-i-1, result.Remaining)
	}
}

func (s *RedisStoreSuite) TestDenyOverLimit() {
	for range 2 {
		_, err := s.store.Allow(s.ctx, "alice", 2, time.Minute)
		s.Require().NoError(err)
	}

	result, err := s.store.Allow(s.ctx, "alice", 2, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.Positive(result.RetryAfter)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	_, err := s.store.Allow(s.ctx, "alice", 1, time.Minute)
	s.Require().NoError(err)

	result, err := s.store.Allow(s.ctx, "bob", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisStoreSuite) TestWindowSlides() {
	_, err := s.store.Allow(s.ctx, "alice", 1, 300*time.Millisecond)
	s.Require().NoError(err)

	denied, err := s.store.Allow(s.ctx, "alice", 1, 300*time.Millisecond)
	s.Require().NoError(err)
	s.False(denied.Allowed)

	time.Sleep(400 * time.Millisecond)

	allowed, err := s.store.Allow(s.ctx, "alice", 1, 300*time.Millisecond)
	s.Require().NoError(err)
	s.True(allowed.Allowed)
}

func (s *RedisStoreSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "alice", 1, time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(s.ctx, "alice"))

	result, err := s.store.Allow(s.ctx, "alice", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
