//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rankgate/internal/chat/models"
	"rankgate/internal/chat/store"
	"rankgate/internal/events/outbox"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
	"rankgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB, outbox.NewStore(s.postgres.DB))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "private_chat_sessions", "outbox"))
}

func (s *PostgresStoreSuite) newSession(a, b id.MemberID, channel string, ttl time.Duration) *models.PrivateChatSession {
	sess, err := models.NewPrivateChatSession(id.NewChatSessionID(), a, b, channel, models.SessionTypeGroupInitiated, s.now.Add(ttl), s.now)
	s.Require().NoError(err)
	return sess
}

func (s *PostgresStoreSuite) TestExpiredQueryAndTransition() {
	ctx := context.Background()
	a, b, c := id.NewMemberID(), id.NewMemberID(), id.NewMemberID()
	due := s.newSession(a, b, "pm_due", time.Minute)
	other := s.newSession(a, c, "pm_other", time.Hour)
	s.Require().NoError(s.store.Save(ctx, due))
	s.Require().NoError(s.store.Save(ctx, other))

	expired, err := s.store.ListExpiredActive(ctx, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal(due.ID, expired[0].ID)

	s.Require().NoError(expired[0].MarkAsExpired(s.now.Add(time.Minute)))
	res, err := s.store.CompareAndSwap(ctx, expired[0], 1)
	s.Require().NoError(err)
	s.Equal(cas.Swapped, res)

	res, err = s.store.CompareAndSwap(ctx, due, 1)
	s.Require().NoError(err)
	s.Equal(cas.Conflict, res)

	later := s.newSession(b, a, "pm_later", time.Hour)
	s.Require().NoError(s.store.Save(ctx, later))
	active, err := s.store.FindActiveBetween(ctx, a, b)
	s.Require().NoError(err)
	s.Equal(later.ID, active.ID)
}

// TestActivePairIndex covers the partial unique index: one ACTIVE row per
// unordered pair, any number of terminal ones.
func (s *PostgresStoreSuite) TestActivePairIndex() {
	ctx := context.Background()
	a, b := id.NewMemberID(), id.NewMemberID()
	first := s.newSession(a, b, "pm_first", time.Hour)
	s.Require().NoError(s.store.Save(ctx, first))

	err := s.store.Save(ctx, s.newSession(b, a, "pm_second", time.Hour))
	s.ErrorIs(err, store.ErrActivePairExists)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	s.Require().NoError(first.Terminate(s.now))
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, s.newSession(b, a, "pm_third", time.Hour)))

	sessions, err := s.store.ListByMember(ctx, a)
	s.Require().NoError(err)
	s.Len(sessions, 2)
}

func (s *PostgresStoreSuite) TestExistsByTLKChannelID() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newSession(id.NewMemberID(), id.NewMemberID(), "pm_known", time.Hour)))

	exists, err := s.store.ExistsByTLKChannelID(ctx, "pm_known")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ExistsByTLKChannelID(ctx, "pm_unknown")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *PostgresStoreSuite) TestUniqueChannelAndMissingRows() {
	ctx := context.Background()
	a, b := id.NewMemberID(), id.NewMemberID()
	s.Require().NoError(s.store.Save(ctx, s.newSession(a, b, "pm_dup", time.Hour)))
	s.ErrorIs(s.store.Save(ctx, s.newSession(a, b, "pm_dup", time.Hour)), sentinel.ErrAlreadyUsed)

	res, err := s.store.CompareAndSwap(ctx, s.newSession(a, b, "pm_ghost", time.Hour), 1)
	s.Require().NoError(err)
	s.Equal(cas.NotFound, res)

	_, err = s.store.FindByID(ctx, id.NewChatSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
