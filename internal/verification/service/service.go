package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	membermodels "rankgate/internal/member/models"
	"rankgate/internal/verification/metrics"
	"rankgate/internal/verification/models"
	"rankgate/internal/verification/ports"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/sentinel"
)

const DefaultSessionTTL = 10 * time.Minute

type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.VerificationID) (*models.Session, error)
	FindPendingByMember(ctx context.Context, memberID id.MemberID, now time.Time) (*models.Session, error)
}

type MemberReader interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*membermodels.MemberProfile, error)
}

// MemberVerifier applies a verified claim to a member profile, enforcing DID
// uniqueness and retrying lock conflicts.
type MemberVerifier interface {
	VerifyWithRankCard(ctx context.Context, memberID id.MemberID, did string, rank id.Rank) (*membermodels.MemberProfile, error)
}

// Service drives the verifier round trip and records each session's outcome.
type Service struct {
	sessions SessionStore
	members  MemberReader
	verifier ports.Verifier
	apply    MemberVerifier
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(sessions SessionStore, members MemberReader, verifier ports.Verifier, apply MemberVerifier, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		members:  members,
		verifier: verifier,
		apply:    apply,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a verifier transaction for memberID. A live pending session is
// returned as-is instead of opening a second one.
func (s *Service) Start(ctx context.Context, memberID id.MemberID) (*models.Session, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	if member.IsVerified() {
		return nil, dErrors.New(dErrors.CodeAlreadyVerified, "member already holds a verified rank")
	}

	now := s.now()
	existing, err := s.sessions.FindPendingByMember(ctx, memberID, now)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.FromStore(err, "verification session")
	}

	pending, err := s.verifier.StartVerification(ctx, memberID)
	if err != nil {
		s.metrics.IncrementVerifierError()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verifier unavailable")
	}
	session, err := models.NewSession(id.NewVerificationID(), memberID, pending.TransactionID, pending.RequestURI, now, s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.FromStore(err, "verification session")
	}
	s.metrics.IncrementStarted()
	s.logger.InfoContext(ctx, "verification started",
		"verification_id", session.ID.String(),
		"member_id", memberID.String(),
	)
	return session, nil
}

// Poll advances a pending session by asking the verifier for its result. On a
// verified claim the member profile is updated before the session is marked
// SUCCEEDED. A claim the member cannot take (DID already linked elsewhere,
// member already verified) fails the session and returns the member error.
func (s *Service) Poll(ctx context.Context, verificationID id.VerificationID, memberID id.MemberID) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, verificationID)
	if err != nil {
		return nil, dErrors.FromStore(err, "verification session")
	}
	if session.MemberID != memberID {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification session not found")
	}
	if session.Status.IsTerminal() {
		return session, nil
	}

	now := s.now()
	if session.IsExpired(now) {
		return s.finish(ctx, session, session.Expire(now))
	}

	result, err := s.verifier.PollResult(ctx, session.TransactionID)
	if errors.Is(err, ports.ErrUnknownTransaction) {
		return s.finish(ctx, session, session.Fail("verifier has no record of the transaction", now))
	}
	if err != nil {
		s.metrics.IncrementVerifierError()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verifier unavailable")
	}

	switch result.State {
	case ports.ResultPending:
		return session, nil
	case ports.ResultExpired:
		return s.finish(ctx, session, session.Expire(now))
	case ports.ResultFailed:
		return s.finish(ctx, session, session.Fail(result.Reason, now))
	}

	if _, err := s.apply.VerifyWithRankCard(ctx, memberID, result.DID, result.Rank); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUniqueViolation) || dErrors.HasCode(err, dErrors.CodeAlreadyVerified) {
			if _, finishErr := s.finish(ctx, session, session.Fail(dErrors.MessageOf(err), now)); finishErr != nil {
				return nil, finishErr
			}
			return session, err
		}
		return nil, err
	}
	return s.finish(ctx, session, session.Resolve(result.DID, result.Rank, now))
}

func (s *Service) finish(ctx context.Context, session *models.Session, transitionErr error) (*models.Session, error) {
	if transitionErr != nil {
		return nil, transitionErr
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.FromStore(err, "verification session")
	}
	s.metrics.IncrementOutcome(string(session.Status))
	s.logger.InfoContext(ctx, "verification finished",
		"verification_id", session.ID.String(),
		"member_id", session.MemberID.String(),
		"status", string(session.Status),
	)
	return session, nil
}
