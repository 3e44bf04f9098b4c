package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rankgate/internal/events"
	"rankgate/internal/forum/models"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

type ForumStoreSuite struct {
	suite.Suite
	ctx       context.Context
	publisher *events.InMemory
	store     *InMemory
	now       time.Time
}

func TestForumStoreSuite(t *testing.T) {
	suite.Run(t, new(ForumStoreSuite))
}

func (s *ForumStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.publisher = events.NewInMemory()
	s.store = NewInMemory(s.publisher)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ForumStoreSuite) newForum(channel string, rank id.Rank) *models.Forum {
	f, err := models.NewForum(id.NewForumID(), rank, channel, 10, id.NewMemberID(), "", s.now)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Second)
	return f
}

func (s *ForumStoreSuite) TestCreateAndFind() {
	f := s.newForum("forum_a", id.RankNewbieVillage)
	s.Require().NoError(s.store.Save(s.ctx, f))

	found, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(f.TLKChannelID, found.TLKChannelID)

	found, err = s.store.FindByTLKChannelID(s.ctx, "forum_a")
	s.Require().NoError(err)
	s.Equal(f.ID, found.ID)

	_, err = s.store.FindByTLKChannelID(s.ctx, "forum_missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Create(s.ctx, s.newForum("forum_a", id.RankLifeWinnerS))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

// TestStaleJoinConflicts: two readers at the same version both increment;
// the later save is a conflict and the count reflects one join.
func (s *ForumStoreSuite) TestStaleJoinConflicts() {
	f := s.newForum("forum_a", id.RankNewbieVillage)
	s.Require().NoError(s.store.Save(s.ctx, f))

	a, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	b, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)

	s.Require().NoError(a.IncrementMemberCount(s.now))
	s.Require().NoError(b.IncrementMemberCount(s.now))

	res, err := s.store.CompareAndSwap(s.ctx, a, a.PersistedVersion())
	s.Require().NoError(err)
	s.Equal(cas.Swapped, res)

	res, err = s.store.CompareAndSwap(s.ctx, b, b.PersistedVersion())
	s.Require().NoError(err)
	s.Equal(cas.Conflict, res)
	s.ErrorIs(s.store.Save(s.ctx, b), sentinel.ErrConflict)

	stored, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.MemberCount)
	s.Equal(2, stored.Version)
}

func (s *ForumStoreSuite) TestExistsByTLKChannelID() {
	s.Require().NoError(s.store.Save(s.ctx, s.newForum("forum_a", id.RankNewbieVillage)))

	exists, err := s.store.ExistsByTLKChannelID(s.ctx, "forum_a")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ExistsByTLKChannelID(s.ctx, "forum_missing")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ForumStoreSuite) TestMembership() {
	f := s.newForum("forum_a", id.RankNewbieVillage)
	s.Require().NoError(s.store.Save(s.ctx, f))
	memberID := id.NewMemberID()

	joined, err := s.store.IsMember(s.ctx, f.ID, memberID)
	s.Require().NoError(err)
	s.False(joined)

	s.Require().NoError(f.IncrementMemberCount(s.now))
	s.Require().NoError(s.store.AddMember(s.ctx, f, memberID))
	joined, err = s.store.IsMember(s.ctx, f.ID, memberID)
	s.Require().NoError(err)
	s.True(joined)

	again, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Require().NoError(again.IncrementMemberCount(s.now))
	err = s.store.AddMember(s.ctx, again, memberID)
	s.ErrorIs(err, ErrAlreadyMember)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	stranger := id.NewMemberID()
	err = s.store.RemoveMember(s.ctx, again, stranger)
	s.ErrorIs(err, ErrNotMember)
	s.ErrorIs(err, sentinel.ErrNotFound)

	stored, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.MemberCount, "rejected writes leave the count alone")
	s.Equal(2, stored.Version)

	s.Require().NoError(stored.DecrementMemberCount(s.now))
	s.Require().NoError(s.store.RemoveMember(s.ctx, stored, memberID))
	joined, err = s.store.IsMember(s.ctx, f.ID, memberID)
	s.Require().NoError(err)
	s.False(joined)
}

// TestStaleMembershipWriteConflicts keeps the membership set and the count in
// step: a stale version changes neither.
func (s *ForumStoreSuite) TestStaleMembershipWriteConflicts() {
	f := s.newForum("forum_a", id.RankNewbieVillage)
	s.Require().NoError(s.store.Save(s.ctx, f))

	stale, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Require().NoError(f.IncrementMemberCount(s.now))
	s.Require().NoError(s.store.AddMember(s.ctx, f, id.NewMemberID()))

	late := id.NewMemberID()
	s.Require().NoError(stale.IncrementMemberCount(s.now))
	s.ErrorIs(s.store.AddMember(s.ctx, stale, late), sentinel.ErrConflict)

	joined, err := s.store.IsMember(s.ctx, f.ID, late)
	s.Require().NoError(err)
	s.False(joined)

	s.ErrorIs(s.store.AddMember(s.ctx, s.newForum("forum_ghost", id.RankNewbieVillage), late), sentinel.ErrNotFound)

	s.Require().NoError(s.store.Delete(s.ctx, f.ID))
	joined, err = s.store.IsMember(s.ctx, f.ID, late)
	s.Require().NoError(err)
	s.False(joined)
}

func (s *ForumStoreSuite) TestCompareAndSwapMissing() {
	res, err := s.store.CompareAndSwap(s.ctx, s.newForum("forum_x", id.RankNewbieVillage), 1)
	s.Require().NoError(err)
	s.Equal(cas.NotFound, res)
}

func (s *ForumStoreSuite) TestArchivePublishesEvent() {
	f := s.newForum("forum_a", id.RankNewbieVillage)
	s.Require().NoError(s.store.Save(s.ctx, f))
	s.Require().NoError(f.Archive(s.now))
	s.Require().NoError(s.store.Save(s.ctx, f))

	published := s.publisher.Published()
	s.Require().Len(published, 1)
	s.Equal("forum.archived", published[0].EventType())
	s.Equal(f.ID.String(), published[0].AggregateID())
}

func (s *ForumStoreSuite) TestListFilters() {
	newbie := s.newForum("forum_1", id.RankNewbieVillage)
	vip := s.newForum("forum_2", id.RankQuasiWealthyVIP)
	archived := s.newForum("forum_3", id.RankQuasiWealthyVIP)
	for _, f := range []*models.Forum{newbie, vip, archived} {
		s.Require().NoError(s.store.Save(s.ctx, f))
	}
	s.Require().NoError(archived.Archive(s.now))
	s.Require().NoError(s.store.Save(s.ctx, archived))

	active, err := s.store.ListByStatus(s.ctx, models.StatusActive)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(newbie.ID, active[0].ID, "oldest first")

	byRank, err := s.store.ListByRank(s.ctx, id.RankQuasiWealthyVIP)
	s.Require().NoError(err)
	s.Len(byRank, 2)

	both, err := s.store.List(s.ctx, Filter{
		Status: models.StatusActive,
		Ranks:  []id.Rank{id.RankQuasiWealthyVIP, id.RankLifeWinnerS},
	})
	s.Require().NoError(err)
	s.Require().Len(both, 1)
	s.Equal(vip.ID, both[0].ID)

	all, err := s.store.List(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	s.Require().NoError(s.store.Delete(s.ctx, vip.ID))
	s.Require().NoError(s.store.Delete(s.ctx, vip.ID))
	all, err = s.store.List(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)
}
