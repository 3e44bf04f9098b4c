package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SessionStore,MemberReader,MemberVerifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	membermodels "rankgate/internal/member/models"
	"rankgate/internal/verification/client"
	"rankgate/internal/verification/models"
	"rankgate/internal/verification/ports"
	"rankgate/internal/verification/service/mocks"
	"rankgate/internal/verification/store"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/sentinel"
)

type brokenVerifier struct{}

func (brokenVerifier) StartVerification(context.Context, id.MemberID) (ports.PendingTransaction, error) {
	return ports.PendingTransaction{}, &client.Error{Category: client.CategoryOutage, Message: "down"}
}

func (brokenVerifier) PollResult(context.Context, string) (ports.Result, error) {
	return ports.Result{}, &client.Error{Category: client.CategoryTimeout, Message: "slow"}
}

type VerificationServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	members  *mocks.MockMemberReader
	apply    *mocks.MockMemberVerifier
	sessions *store.InMemory
	verifier *client.Static
	now      time.Time
	member   *membermodels.MemberProfile
	service  *Service
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.members = mocks.NewMockMemberReader(s.ctrl)
	s.apply = mocks.NewMockMemberVerifier(s.ctrl)
	s.sessions = store.NewInMemory()
	s.verifier = client.NewStatic(id.RankLifeWinnerS)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	member, err := membermodels.NewMemberProfile(id.NewMemberID(), "sub-1", "Alice", "", "", s.now)
	s.Require().NoError(err)
	s.member = member

	s.service = New(s.sessions, s.members, s.verifier, s.apply,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
		WithSessionTTL(5*time.Minute),
	)
}

func (s *VerificationServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *VerificationServiceSuite) start() *models.Session {
	s.members.EXPECT().FindByID(gomock.Any(), s.member.ID).Return(s.member, nil)
	session, err := s.service.Start(context.Background(), s.member.ID)
	s.Require().NoError(err)
	return session
}

func (s *VerificationServiceSuite) TestStart() {
	s.Run("opens a pending session", func() {
		session := s.start()
		s.Equal(models.StatusPending, session.Status)
		s.Equal(client.TransactionFor(s.member.ID), session.TransactionID)
		s.Equal(s.now.Add(5*time.Minute), session.ExpiresAt)
	})

	s.Run("reuses the live pending session", func() {
		first := s.start()
		second := s.start()
		s.Equal(first.ID, second.ID)
	})

	s.Run("verified member is refused", func() {
		verified, err := membermodels.NewMemberProfile(id.NewMemberID(), "sub-2", "Bob", "", "", s.now)
		s.Require().NoError(err)
		s.Require().NoError(verified.VerifyWithRankCard("did:x", id.RankNewbieVillage, s.now))
		s.members.EXPECT().FindByID(gomock.Any(), verified.ID).Return(verified, nil)

		_, err = s.service.Start(context.Background(), verified.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVerified))
	})

	s.Run("unknown member is not found", func() {
		missing := id.NewMemberID()
		s.members.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Start(context.Background(), missing)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("verifier outage is unavailable", func() {
		svc := New(s.sessions, s.members, brokenVerifier{}, s.apply)
		other, err := membermodels.NewMemberProfile(id.NewMemberID(), "sub-3", "Cy", "", "", s.now)
		s.Require().NoError(err)
		s.members.EXPECT().FindByID(gomock.Any(), other.ID).Return(other, nil)
		_, err = svc.Start(context.Background(), other.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *VerificationServiceSuite) TestPollVerified() {
	session := s.start()
	s.apply.EXPECT().
		VerifyWithRankCard(gomock.Any(), s.member.ID, "did:static:"+s.member.ID.String(), id.RankLifeWinnerS).
		Return(s.member, nil)

	polled, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSucceeded, polled.Status)
	s.Equal(id.RankLifeWinnerS, polled.Rank)

	s.Run("terminal sessions are returned without polling again", func() {
		again, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSucceeded, again.Status)
	})
}

func (s *VerificationServiceSuite) TestPollPendingAndFailed() {
	session := s.start()

	s.verifier.Set(session.TransactionID, ports.Result{State: ports.ResultPending})
	polled, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, polled.Status)

	s.verifier.Set(session.TransactionID, ports.Result{State: ports.ResultFailed, Reason: "holder declined"})
	polled, err = s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, polled.Status)
	s.Equal("holder declined", polled.FailureReason)
}

func (s *VerificationServiceSuite) TestPollExpiresLocally() {
	session := s.start()
	s.now = s.now.Add(5 * time.Minute)

	polled, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, polled.Status)
}

func (s *VerificationServiceSuite) TestPollDuplicateDIDFailsSession() {
	session := s.start()
	dup := dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeUniqueViolation, "rank card is already linked to another member")
	s.apply.EXPECT().VerifyWithRankCard(gomock.Any(), s.member.ID, gomock.Any(), gomock.Any()).Return(nil, dup)

	polled, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUniqueViolation))
	s.Require().NotNil(polled)
	s.Equal(models.StatusFailed, polled.Status)

	stored, err := s.sessions.FindByID(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, stored.Status)
}

func (s *VerificationServiceSuite) TestPollTransientMemberErrorKeepsPending() {
	session := s.start()
	s.apply.EXPECT().VerifyWithRankCard(gomock.Any(), s.member.ID, gomock.Any(), gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("db down"), dErrors.CodeRepositoryIO, "failed to access member profile"))

	_, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeRepositoryIO))

	stored, err := s.sessions.FindByID(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *VerificationServiceSuite) TestPollOwnership() {
	session := s.start()
	_, err := s.service.Poll(context.Background(), session.ID, id.NewMemberID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Poll(context.Background(), id.NewVerificationID(), s.member.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VerificationServiceSuite) TestPollUnknownTransactionFails() {
	session := s.start()
	session.TransactionID = "lost"
	s.Require().NoError(s.sessions.Save(context.Background(), session))

	polled, err := s.service.Poll(context.Background(), session.ID, s.member.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, polled.Status)
}
