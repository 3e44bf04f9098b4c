// Package expiry finds and retires lapsed private chat sessions and expired
// Rank Card verification sessions.
//
// Cleanup is best effort: each session is handled independently and failures
// are collected in CleanupResult rather than aborting the batch. Sessions that
// another writer already moved out of ACTIVE are skipped, so running cleanup
// twice over the same set reports no new errors. The service does not log;
// callers report the returned CleanupResult (see LogResult).
package expiry

import (
	"context"
	"errors"
	"time"

	"rankgate/internal/chat/models"
	vmodels "rankgate/internal/verification/models"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/sentinel"
)

const DefaultSaveRetryAttempts = 3

type ChatStore interface {
	FindByID(ctx context.Context, sessionID id.ChatSessionID) (*models.PrivateChatSession, error)
	ListExpiredActive(ctx context.Context, cutoff time.Time) ([]*models.PrivateChatSession, error)
	Save(ctx context.Context, sess *models.PrivateChatSession) error
}

type VerificationStore interface {
	ListExpired(ctx context.Context, now time.Time) ([]*vmodels.Session, error)
	Delete(ctx context.Context, sessionID id.VerificationID) error
}

// Error kinds reported in CleanupError.
const (
	KindChat         = "chat_session"
	KindVerification = "verification_session"
)

type CleanupError struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

type CleanupResult struct {
	ChatSessionsProcessed int            `json:"chat_sessions_processed"`
	ChatSessionsCleaned   int            `json:"chat_sessions_cleaned"`
	VCSessionsProcessed   int            `json:"vc_sessions_processed"`
	VCSessionsCleaned     int            `json:"vc_sessions_cleaned"`
	Errors                []CleanupError `json:"errors"`
}

func (r *CleanupResult) fail(kind, sessionID string, err error) {
	r.Errors = append(r.Errors, CleanupError{
		Kind:      kind,
		SessionID: sessionID,
		Message:   err.Error(),
		Err:       err,
	})
}

type Service struct {
	chats         ChatStore
	verifications VerificationStore
	grace         time.Duration
	attempts      int
	now           func() time.Time
	metrics       *Metrics
}

type Option func(*Service)

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithGracePeriod sets the lookahead used by FindExpiredSessions(ctx, true).
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.grace = d
		}
	}
}

func WithSaveRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithVerificationSessions enables cleanup of expired verification sessions.
func WithVerificationSessions(store VerificationStore) Option {
	return func(s *Service) { s.verifications = store }
}

func New(chats ChatStore, opts ...Option) *Service {
	s := &Service{
		chats:    chats,
		attempts: DefaultSaveRetryAttempts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindExpiredSessions lists ACTIVE sessions with ExpiresAt at or before now,
// or before now plus the grace period when includeGracePeriod is set. The
// grace period only widens this query; it does not change IsExpired.
func (s *Service) FindExpiredSessions(ctx context.Context, includeGracePeriod bool) ([]id.ChatSessionID, error) {
	cutoff := s.now()
	if includeGracePeriod {
		cutoff = cutoff.Add(s.grace)
	}
	sessions, err := s.chats.ListExpiredActive(ctx, cutoff)
	if err != nil {
		return nil, dErrors.FromStore(err, "chat session")
	}
	ids := make([]id.ChatSessionID, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	return ids, nil
}

// CleanupExpiredSessions marks every lapsed ACTIVE chat session EXPIRED and
// deletes expired verification sessions. The returned error is non-nil only
// when ctx is done; everything else lands in CleanupResult.Errors.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{Errors: []CleanupError{}}
	now := s.now()

	s.cleanupChats(ctx, now, &result)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	s.cleanupVerifications(ctx, now, &result)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.metrics.observeRun(result, time.Since(start))
	return result, nil
}

func (s *Service) cleanupChats(ctx context.Context, now time.Time, result *CleanupResult) {
	sessions, err := s.chats.ListExpiredActive(ctx, now)
	if err != nil {
		result.fail(KindChat, "", dErrors.FromStore(err, "chat session"))
		return
	}
	for _, sess := range sessions {
		if ctx.Err() != nil {
			return
		}
		result.ChatSessionsProcessed++
		cleaned, err := s.expireOne(ctx, sess, now)
		if err != nil {
			result.fail(KindChat, sess.ID.String(), err)
			continue
		}
		if cleaned {
			result.ChatSessionsCleaned++
		}
	}
}

// expireOne reports false without error when the session left ACTIVE before
// this run could expire it.
func (s *Service) expireOne(ctx context.Context, sess *models.PrivateChatSession, now time.Time) (bool, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		if !sess.IsActive() {
			return false, nil
		}
		if err := sess.MarkAsExpired(now); err != nil {
			return false, err
		}
		err := s.chats.Save(ctx, sess)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return false, dErrors.FromStore(err, "chat session")
		}
		sess, err = s.chats.FindByID(ctx, sess.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, dErrors.FromStore(err, "chat session")
		}
	}
	return false, dErrors.New(dErrors.CodeOptimisticLock, "chat session kept changing during cleanup")
}

func (s *Service) cleanupVerifications(ctx context.Context, now time.Time, result *CleanupResult) {
	if s.verifications == nil {
		return
	}
	sessions, err := s.verifications.ListExpired(ctx, now)
	if err != nil {
		result.fail(KindVerification, "", dErrors.FromStore(err, "verification session"))
		return
	}
	for _, session := range sessions {
		if ctx.Err() != nil {
			return
		}
		result.VCSessionsProcessed++
		err := s.verifications.Delete(ctx, session.ID)
		switch {
		case err == nil:
			result.VCSessionsCleaned++
		case errors.Is(err, sentinel.ErrNotFound):
			// already gone
		default:
			result.fail(KindVerification, session.ID.String(), dErrors.FromStore(err, "verification session"))
		}
	}
}

// CalculateExpiryTime is createdAt plus the policy duration.
func CalculateExpiryTime(createdAt time.Time, policy models.ExpiryPolicy) time.Time {
	return createdAt.Add(policy.Duration)
}
