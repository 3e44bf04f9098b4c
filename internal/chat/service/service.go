package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rankgate/internal/chat/expiry"
	"rankgate/internal/chat/metrics"
	"rankgate/internal/chat/models"
	chatstore "rankgate/internal/chat/store"
	"rankgate/internal/chatchannel"
	membermodels "rankgate/internal/member/models"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

const DefaultRetryAttempts = 3

type Store interface {
	Save(ctx context.Context, sess *models.PrivateChatSession) error
	FindByID(ctx context.Context, sessionID id.ChatSessionID) (*models.PrivateChatSession, error)
	FindActiveBetween(ctx context.Context, a, b id.MemberID) (*models.PrivateChatSession, error)
	ListByMember(ctx context.Context, memberID id.MemberID) ([]*models.PrivateChatSession, error)
}

type MemberReader interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*membermodels.MemberProfile, error)
}

type OpenCommand struct {
	MemberA id.MemberID
	MemberB id.MemberID
	Type    models.SessionType
}

// Service opens and ends private chats. Expiry is applied lazily on read in
// addition to the background sweep, so callers never see an ACTIVE session
// past its deadline.
type Service struct {
	sessions Store
	members  MemberReader
	channels chatchannel.Provider
	policies map[models.SessionType]models.ExpiryPolicy
	attempts int
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPolicies overrides the expiry policy per session type. Types missing
// from policies keep their defaults.
func WithPolicies(policies map[models.SessionType]models.ExpiryPolicy) Option {
	return func(s *Service) {
		for t, p := range policies {
			s.policies[t] = p
		}
	}
}

func WithRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func New(sessions Store, members MemberReader, channels chatchannel.Provider, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		members:  members,
		channels: channels,
		policies: models.DefaultPolicies(),
		attempts: DefaultRetryAttempts,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a session between two members. At most one ACTIVE session may
// exist per pair; a lapsed one is expired first.
func (s *Service) Open(ctx context.Context, cmd OpenCommand) (*models.PrivateChatSession, error) {
	if cmd.MemberA == cmd.MemberB {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "a chat needs two different members")
	}
	policy, ok := s.policies[cmd.Type]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid session type: "+string(cmd.Type))
	}

	initiator, err := s.members.FindByID(ctx, cmd.MemberA)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	if _, err := s.members.FindByID(ctx, cmd.MemberB); err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}

	now := s.now()
	existing, err := s.sessions.FindActiveBetween(ctx, cmd.MemberA, cmd.MemberB)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case err != nil:
		return nil, dErrors.FromStore(err, "chat session")
	case !existing.IsExpired(now):
		return nil, dErrors.New(dErrors.CodeConflict, "an active chat already exists between these members")
	default:
		if _, err := s.expireOnAccess(ctx, existing, now); err != nil {
			return nil, err
		}
	}

	handle, err := s.channels.NewChannel(ctx, chatchannel.KindPrivate, initiator.ID, initiator.Nickname)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to allocate chat channel")
	}

	sess, err := models.NewPrivateChatSession(id.NewChatSessionID(), cmd.MemberA, cmd.MemberB,
		handle.ChannelID, cmd.Type, expiry.CalculateExpiryTime(now, policy), now)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, chatstore.ErrActivePairExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "an active chat already exists between these members")
		}
		return nil, dErrors.FromStore(err, "chat session")
	}

	s.metrics.IncrementOpened(string(cmd.Type))
	s.logger.InfoContext(ctx, "chat session opened",
		"session_id", sess.ID.String(),
		"type", string(sess.Type),
		"expires_at", sess.ExpiresAt,
	)
	return sess, nil
}

// Get returns a session to one of its participants, expiring it first when
// its deadline has passed. Non-participants get not_found.
func (s *Service) Get(ctx context.Context, sessionID id.ChatSessionID, viewerID id.MemberID) (*models.PrivateChatSession, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, dErrors.FromStore(err, "chat session")
	}
	if !sess.InvolvesMember(viewerID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "chat session not found")
	}
	now := s.now()
	if sess.IsActive() && sess.IsExpired(now) {
		return s.expireOnAccess(ctx, sess, now)
	}
	return sess, nil
}

// expireOnAccess persists the EXPIRED transition. Losing the race to another
// writer is fine as long as the session ended up terminal.
func (s *Service) expireOnAccess(ctx context.Context, sess *models.PrivateChatSession, now time.Time) (*models.PrivateChatSession, error) {
	if err := sess.MarkAsExpired(now); err != nil {
		return nil, err
	}
	err := s.sessions.Save(ctx, sess)
	if err == nil {
		s.metrics.IncrementExpiredOnAccess()
		return sess, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.FromStore(err, "chat session")
	}
	current, err := s.sessions.FindByID(ctx, sess.ID)
	if err != nil {
		return nil, dErrors.FromStore(err, "chat session")
	}
	if !current.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeOptimisticLock, "chat session was modified concurrently, reload and retry")
	}
	return current, nil
}

// Terminate ends a session on behalf of one of its participants.
func (s *Service) Terminate(ctx context.Context, sessionID id.ChatSessionID, actorID id.MemberID) (*models.PrivateChatSession, error) {
	var ended *models.PrivateChatSession
	err := cas.Retry(ctx, s.attempts, func(ctx context.Context) error {
		sess, err := s.sessions.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !sess.InvolvesMember(actorID) {
			return dErrors.New(dErrors.CodeForbidden, "only participants can end a chat")
		}
		if err := sess.Terminate(s.now()); err != nil {
			return err
		}
		if err := s.sessions.Save(ctx, sess); err != nil {
			return err
		}
		ended = sess
		return nil
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.FromStore(err, "chat session")
	}
	s.metrics.IncrementTerminated()
	s.logger.InfoContext(ctx, "chat session terminated",
		"session_id", sessionID.String(),
		"actor_id", actorID.String(),
	)
	return ended, nil
}

// ListForMember returns every session the member takes part in, soonest
// expiry first.
func (s *Service) ListForMember(ctx context.Context, memberID id.MemberID) ([]*models.PrivateChatSession, error) {
	sessions, err := s.sessions.ListByMember(ctx, memberID)
	if err != nil {
		return nil, dErrors.FromStore(err, "chat session")
	}
	return sessions, nil
}
