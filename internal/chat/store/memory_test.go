package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rankgate/internal/chat/models"
	"rankgate/internal/events"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	ctx       context.Context
	publisher *events.InMemory
	store     *InMemory
	now       time.Time
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.publisher = events.NewInMemory()
	s.store = NewInMemory(s.publisher)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *SessionStoreSuite) newSession(a, b id.MemberID, channel string, ttl time.Duration) *models.PrivateChatSession {
	sess, err := models.NewPrivateChatSession(id.NewChatSessionID(), a, b, channel, models.SessionTypeDailyMatch, s.now.Add(ttl), s.now)
	s.Require().NoError(err)
	return sess
}

func (s *SessionStoreSuite) TestCreateFindAndUniqueChannel() {
	a, b := id.NewMemberID(), id.NewMemberID()
	sess := s.newSession(a, b, "pm_1", time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, sess))

	found, err := s.store.FindByTLKChannelID(s.ctx, "pm_1")
	s.Require().NoError(err)
	s.Equal(sess.ID, found.ID)

	err = s.store.Create(s.ctx, s.newSession(a, b, "pm_1", time.Hour))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(s.ctx, id.NewChatSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestExistsByTLKChannelID() {
	sess := s.newSession(id.NewMemberID(), id.NewMemberID(), "pm_1", time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, sess))

	exists, err := s.store.ExistsByTLKChannelID(s.ctx, "pm_1")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ExistsByTLKChannelID(s.ctx, "pm_missing")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(sess.Terminate(s.now))
	s.Require().NoError(s.store.Save(s.ctx, sess))
	exists, err = s.store.ExistsByTLKChannelID(s.ctx, "pm_1")
	s.Require().NoError(err)
	s.True(exists, "terminal sessions keep their channel")
}

func (s *SessionStoreSuite) TestOneActiveSessionPerPair() {
	a, b, c := id.NewMemberID(), id.NewMemberID(), id.NewMemberID()
	first := s.newSession(a, b, "pm_1", time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, first))

	err := s.store.Create(s.ctx, s.newSession(b, a, "pm_2", time.Hour))
	s.ErrorIs(err, ErrActivePairExists)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	s.Require().NoError(s.store.Create(s.ctx, s.newSession(a, c, "pm_3", time.Hour)), "other pairs are unaffected")

	s.Require().NoError(first.Terminate(s.now))
	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, s.newSession(b, a, "pm_4", time.Hour)), "a terminal session frees the pair")

	forA, err := s.store.ListByMember(s.ctx, a)
	s.Require().NoError(err)
	active := 0
	for _, sess := range forA {
		if sess.InvolvesMembers(a, b) && sess.IsActive() {
			active++
		}
	}
	s.Equal(1, active)
}

func (s *SessionStoreSuite) TestFindActiveBetweenIgnoresOrderAndTerminalSessions() {
	a, b := id.NewMemberID(), id.NewMemberID()
	sess := s.newSession(a, b, "pm_1", time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, sess))

	found, err := s.store.FindActiveBetween(s.ctx, b, a)
	s.Require().NoError(err)
	s.Equal(sess.ID, found.ID)

	s.Require().NoError(sess.Terminate(s.now))
	s.Require().NoError(s.store.Save(s.ctx, sess))
	_, err = s.store.FindActiveBetween(s.ctx, a, b)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestListExpiredActiveBoundary() {
	a, b, c := id.NewMemberID(), id.NewMemberID(), id.NewMemberID()
	due := s.newSession(a, b, "pm_due", time.Minute)
	later := s.newSession(a, c, "pm_later", time.Hour)
	done := s.newSession(b, c, "pm_done", time.Minute)
	for _, sess := range []*models.PrivateChatSession{due, later, done} {
		s.Require().NoError(s.store.Save(s.ctx, sess))
	}
	s.Require().NoError(done.Terminate(s.now))
	s.Require().NoError(s.store.Save(s.ctx, done))

	expired, err := s.store.ListExpiredActive(s.ctx, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().Len(expired, 1, "cutoff is inclusive and terminal sessions are skipped")
	s.Equal(due.ID, expired[0].ID)

	expired, err = s.store.ListExpiredActive(s.ctx, s.now.Add(time.Minute-time.Nanosecond))
	s.Require().NoError(err)
	s.Empty(expired)
}

func (s *SessionStoreSuite) TestListByMember() {
	a, b, c := id.NewMemberID(), id.NewMemberID(), id.NewMemberID()
	s.Require().NoError(s.store.Save(s.ctx, s.newSession(a, b, "pm_1", time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.newSession(c, a, "pm_2", 2*time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.newSession(b, c, "pm_3", time.Hour)))

	forA, err := s.store.ListByMember(s.ctx, a)
	s.Require().NoError(err)
	s.Len(forA, 2)

	active, err := s.store.ListByStatus(s.ctx, models.StatusActive)
	s.Require().NoError(err)
	s.Len(active, 3)
}

func (s *SessionStoreSuite) TestCompareAndSwapTriState() {
	a, b := id.NewMemberID(), id.NewMemberID()
	sess := s.newSession(a, b, "pm_1", time.Hour)

	res, err := s.store.CompareAndSwap(s.ctx, sess, 1)
	s.Require().NoError(err)
	s.Equal(cas.NotFound, res)

	s.Require().NoError(s.store.Save(s.ctx, sess))
	stale, err := s.store.FindByID(s.ctx, sess.ID)
	s.Require().NoError(err)

	s.Require().NoError(sess.MarkAsExpired(s.now.Add(2 * time.Hour)))
	res, err = s.store.CompareAndSwap(s.ctx, sess, 1)
	s.Require().NoError(err)
	s.Equal(cas.Swapped, res)

	s.Require().NoError(stale.Terminate(s.now))
	res, err = s.store.CompareAndSwap(s.ctx, stale, stale.PersistedVersion())
	s.Require().NoError(err)
	s.Equal(cas.Conflict, res)

	stored, err := s.store.FindByID(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, stored.Status)

	published := s.publisher.Published()
	s.Require().Len(published, 1)
	s.Equal("chat_session.expired", published[0].EventType())
}

func (s *SessionStoreSuite) TestDeleteIsIdempotent() {
	sess := s.newSession(id.NewMemberID(), id.NewMemberID(), "pm_1", time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, sess))
	s.Require().NoError(s.store.Delete(s.ctx, sess.ID))
	s.Require().NoError(s.store.Delete(s.ctx, sess.ID))
	_, err := s.store.FindByID(s.ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
