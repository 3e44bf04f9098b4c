package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,MemberReader

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rankgate/internal/chat/models"
	"rankgate/internal/chat/service/mocks"
	chatstore "rankgate/internal/chat/store"
	"rankgate/internal/chatchannel"
	"rankgate/internal/events"
	membermodels "rankgate/internal/member/models"
	memberstore "rankgate/internal/member/store"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/sentinel"
)

// gatedChannels holds every caller until n of them have asked for a channel,
// so all openers pass the active-session lookup before any of them saves.
type gatedChannels struct {
	next    chatchannel.Provider
	arrived sync.WaitGroup
}

func newGatedChannels(next chatchannel.Provider, n int) *gatedChannels {
	g := &gatedChannels{next: next}
	g.arrived.Add(n)
	return g
}

func (g *gatedChannels) NewChannel(ctx context.Context, kind chatchannel.Kind, ownerID id.MemberID, nickname string) (chatchannel.Handle, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.next.NewChannel(ctx, kind, ownerID, nickname)
}

type ChatServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	sessions *chatstore.InMemory
	members  *memberstore.InMemory
	channels *chatchannel.Local
	service  *Service
	alice    *membermodels.MemberProfile
	bob      *membermodels.MemberProfile
}

func TestChatServiceSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceSuite))
}

func (s *ChatServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.sessions = chatstore.NewInMemory(events.Discard{})
	s.members = memberstore.NewInMemory(events.Discard{})
	channels, err := chatchannel.NewLocal()
	s.Require().NoError(err)
	s.channels = channels
	s.service = New(s.sessions, s.members, s.channels,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
	s.alice = s.member("alice")
	s.bob = s.member("bob")
}

func (s *ChatServiceSuite) member(subject string) *membermodels.MemberProfile {
	m, err := membermodels.NewMemberProfile(id.NewMemberID(), subject, subject, "", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.members.Save(s.ctx, m))
	return m
}

func (s *ChatServiceSuite) open(sessionType models.SessionType) *models.PrivateChatSession {
	sess, err := s.service.Open(s.ctx, OpenCommand{MemberA: s.alice.ID, MemberB: s.bob.ID, Type: sessionType})
	s.Require().NoError(err)
	return sess
}

func (s *ChatServiceSuite) TestOpen() {
	s.Run("expiry follows the session type policy", func() {
		sess := s.open(models.SessionTypeGroupInitiated)
		s.Equal(s.now.Add(72*time.Hour), sess.ExpiresAt)
		s.Equal(models.StatusActive, sess.Status)
		s.True(strings.HasPrefix(sess.TLKChannelID, "pm_"))
	})

	s.Run("a second open for the same pair conflicts in either order", func() {
		_, err := s.service.Open(s.ctx, OpenCommand{MemberA: s.bob.ID, MemberB: s.alice.ID, Type: models.SessionTypeDailyMatch})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("same member twice is rejected", func() {
		_, err := s.service.Open(s.ctx, OpenCommand{MemberA: s.alice.ID, MemberB: s.alice.ID, Type: models.SessionTypeDailyMatch})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("unknown type and unknown member", func() {
		carol := s.member("carol")
		_, err := s.service.Open(s.ctx, OpenCommand{MemberA: s.alice.ID, MemberB: carol.ID, Type: "SPEED_DATE"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		_, err = s.service.Open(s.ctx, OpenCommand{MemberA: s.alice.ID, MemberB: id.NewMemberID(), Type: models.SessionTypeDailyMatch})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ChatServiceSuite) TestConcurrentOpensYieldOneActiveSession() {
	const openers = 10
	svc := New(s.sessions, s.members, newGatedChannels(s.channels, openers),
		WithClock(func() time.Time { return s.now }))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		opened    int
		conflicts int
	)
	for i := 0; i < openers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := OpenCommand{MemberA: s.alice.ID, MemberB: s.bob.ID, Type: models.SessionTypeDailyMatch}
			if i%2 == 1 {
				cmd.MemberA, cmd.MemberB = s.bob.ID, s.alice.ID
			}
			_, err := svc.Open(s.ctx, cmd)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, opened)
	s.Equal(openers-1, conflicts)

	sessions, err := s.sessions.ListByMember(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(models.StatusActive, sessions[0].Status)
}

func (s *ChatServiceSuite) TestOpenReplacesLapsedSession() {
	first := s.open(models.SessionTypeDailyMatch)
	s.now = s.now.Add(25 * time.Hour)

	second := s.open(models.SessionTypeDailyMatch)
	s.NotEqual(first.ID, second.ID)

	stored, err := s.sessions.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, stored.Status)
}

func (s *ChatServiceSuite) TestWithPoliciesOverridesDuration() {
	svc := New(s.sessions, s.members, s.channels,
		WithClock(func() time.Time { return s.now }),
		WithPolicies(map[models.SessionType]models.ExpiryPolicy{
			models.SessionTypeDailyMatch: {Name: "short", Duration: time.Hour},
		}),
	)
	sess, err := svc.Open(s.ctx, OpenCommand{MemberA: s.alice.ID, MemberB: s.bob.ID, Type: models.SessionTypeDailyMatch})
	s.Require().NoError(err)
	s.Equal(s.now.Add(time.Hour), sess.ExpiresAt)
}

func (s *ChatServiceSuite) TestGetExpiresOnAccess() {
	sess := s.open(models.SessionTypeDailyMatch)

	got, err := s.service.Get(s.ctx, sess.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)

	_, err = s.service.Get(s.ctx, sess.ID, id.NewMemberID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "strangers cannot see the session")

	s.now = sess.ExpiresAt
	got, err = s.service.Get(s.ctx, sess.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, got.Status)

	stored, err := s.sessions.FindByID(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, stored.Status)
	s.Equal(2, stored.Version)
}

func (s *ChatServiceSuite) TestGetAcceptsConcurrentTerminalWrite() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	svc := New(store, s.members, s.channels, WithClock(func() time.Time { return s.now }))

	sess, err := models.NewPrivateChatSession(id.NewChatSessionID(), s.alice.ID, s.bob.ID, "pm_x", models.SessionTypeDailyMatch, s.now.Add(time.Minute), s.now)
	s.Require().NoError(err)
	terminated := *sess
	s.Require().NoError(terminated.Terminate(s.now))
	s.now = s.now.Add(time.Hour)

	gomock.InOrder(
		store.EXPECT().FindByID(gomock.Any(), sess.ID).Return(sess, nil),
		store.EXPECT().Save(gomock.Any(), sess).Return(sentinel.ErrConflict),
		store.EXPECT().FindByID(gomock.Any(), sess.ID).Return(&terminated, nil),
	)

	got, err := svc.Get(s.ctx, sess.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusTerminated, got.Status)
}

func (s *ChatServiceSuite) TestTerminate() {
	sess := s.open(models.SessionTypeDailyMatch)

	_, err := s.service.Terminate(s.ctx, sess.ID, id.NewMemberID())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	ended, err := s.service.Terminate(s.ctx, sess.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusTerminated, ended.Status)

	_, err = s.service.Terminate(s.ctx, sess.ID, s.alice.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyTerminal))

	_, err = s.service.Terminate(s.ctx, id.NewChatSessionID(), s.alice.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	reopened, err := s.service.Open(s.ctx, OpenCommand{MemberA: s.alice.ID, MemberB: s.bob.ID, Type: models.SessionTypeDailyMatch})
	s.Require().NoError(err, "a terminated session frees the pair")
	s.NotEqual(sess.ID, reopened.ID)
}

func (s *ChatServiceSuite) TestListForMember() {
	s.open(models.SessionTypeDailyMatch)
	carol := s.member("carol")
	_, err := s.service.Open(s.ctx, OpenCommand{MemberA: carol.ID, MemberB: s.alice.ID, Type: models.SessionTypeGroupInitiated})
	s.Require().NoError(err)

	sessions, err := s.service.ListForMember(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Len(sessions, 2)

	sessions, err = s.service.ListForMember(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Len(sessions, 1)
}
