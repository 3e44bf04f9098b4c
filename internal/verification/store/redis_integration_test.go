//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rankgate/internal/verification/models"
	"rankgate/internal/verification/store"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/sentinel"
	"rankgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisStore(s.redis.Client, store.WithRetention(2*time.Hour))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newSession(memberID id.MemberID, created time.Time, ttl time.Duration) *models.Session {
	session, err := models.NewSession(id.NewVerificationID(), memberID, "tx-"+created.String(), "uri", created, ttl)
	s.Require().NoError(err)
	return session
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	session := s.newSession(id.NewMemberID(), now, 10*time.Minute)
	s.Require().NoError(s.store.Save(ctx, session))

	found, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.TransactionID, found.TransactionID)
	s.Equal(models.StatusPending, found.Status)
	s.True(session.ExpiresAt.Equal(found.ExpiresAt))

	s.Require().NoError(found.Resolve("did:web:r", id.RankLifeWinnerS, now))
	s.Require().NoError(s.store.Save(ctx, found))
	found, err = s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSucceeded, found.Status)
	s.Equal(id.RankLifeWinnerS, found.Rank)
}

func (s *RedisStoreSuite) TestFindPendingByMember() {
	ctx := context.Background()
	now := time.Now().UTC()
	memberID := id.NewMemberID()

	first := s.newSession(memberID, now, 10*time.Minute)
	second := s.newSession(memberID, now.Add(time.Second), 10*time.Minute)
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	found, err := s.store.FindPendingByMember(ctx, memberID, now.Add(2*time.Second))
	s.Require().NoError(err)
	s.Equal(second.ID, found.ID)

	_, err = s.store.FindPendingByMember(ctx, id.NewMemberID(), now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestListExpiredAndDelete() {
	ctx := context.Background()
	now := time.Now().UTC()
	memberID := id.NewMemberID()

	expired := s.newSession(memberID, now.Add(-time.Hour), 30*time.Minute)
	live := s.newSession(memberID, now, time.Hour)
	s.Require().NoError(s.store.Save(ctx, expired))
	s.Require().NoError(s.store.Save(ctx, live))

	list, err := s.store.ListExpired(ctx, now)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(expired.ID, list[0].ID)

	s.Require().NoError(s.store.Delete(ctx, expired.ID))
	s.ErrorIs(s.store.Delete(ctx, expired.ID), sentinel.ErrNotFound)

	list, err = s.store.ListExpired(ctx, now)
	s.Require().NoError(err)
	s.Empty(list)

	members, err := s.redis.Client.SMembers(ctx, "verification:member:"+memberID.String()).Result()
	s.Require().NoError(err)
	s.Equal([]string{live.ID.String()}, members)
}
