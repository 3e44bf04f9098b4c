package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	forummodels "rankgate/internal/forum/models"
	forumstore "rankgate/internal/forum/store"
	"rankgate/internal/identity"
	"rankgate/internal/member/metrics"
	"rankgate/internal/member/models"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
)

const (
	DefaultRetryAttempts = 3
	nicknamePrefix       = "member-"
)

type Store interface {
	Save(ctx context.Context, m *models.MemberProfile) error
	FindByID(ctx context.Context, memberID id.MemberID) (*models.MemberProfile, error)
	FindByOIDCSubjectID(ctx context.Context, subject string) (*models.MemberProfile, error)
	ExistsByLinkedVCDID(ctx context.Context, did string) (bool, error)
}

type ForumLister interface {
	List(ctx context.Context, filter forumstore.Filter) ([]*forummodels.Forum, error)
}

type IdentityVerifier interface {
	Verify(idToken string) (identity.Identity, error)
}

// Service owns member login, profile edits and Rank Card linking.
type Service struct {
	members    Store
	forums     ForumLister
	identities IdentityVerifier
	attempts   int
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

// WithRetryAttempts bounds the reload-and-retry loop on lock conflicts.
func WithRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func New(members Store, forums ForumLister, identities IdentityVerifier, opts ...Option) *Service {
	s := &Service{
		members:    members,
		forums:     forums,
		identities: identities,
		attempts:   DefaultRetryAttempts,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login resolves an ID token to a member, creating a GENERAL profile on first
// login. created reports whether the profile is new.
func (s *Service) Login(ctx context.Context, idToken string) (member *models.MemberProfile, created bool, err error) {
	ident, err := s.identities.Verify(idToken)
	if err != nil {
		return nil, false, err
	}

	member, err = s.members.FindByOIDCSubjectID(ctx, ident.SubjectID)
	if err == nil {
		s.metrics.IncrementLogin(false)
		return member, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.FromStore(err, "member profile")
	}

	memberID := id.NewMemberID()
	member, err = models.NewMemberProfile(memberID, ident.SubjectID, nicknameFor(ident, memberID), "", "", s.now())
	if err != nil {
		return nil, false, err
	}
	if err := s.members.Save(ctx, member); err != nil {
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, false, dErrors.FromStore(err, "member profile")
		}
		// A concurrent first login for the same subject won the insert.
		member, err = s.members.FindByOIDCSubjectID(ctx, ident.SubjectID)
		if err != nil {
			return nil, false, dErrors.FromStore(err, "member profile")
		}
		s.metrics.IncrementLogin(false)
		return member, false, nil
	}

	s.metrics.IncrementLogin(true)
	s.logger.InfoContext(ctx, "member profile created",
		"member_id", member.ID.String(),
	)
	return member, true, nil
}

func nicknameFor(ident identity.Identity, memberID id.MemberID) string {
	if name := strings.TrimSpace(ident.DisplayName); name != "" {
		return name
	}
	return nicknamePrefix + memberID.String()[:8]
}

func (s *Service) Get(ctx context.Context, memberID id.MemberID) (*models.MemberProfile, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	return member, nil
}

// UpdateProfile replaces gender and interests, reloading on lock conflicts.
func (s *Service) UpdateProfile(ctx context.Context, memberID id.MemberID, gender, interests string) (*models.MemberProfile, error) {
	var updated *models.MemberProfile
	err := s.retry(ctx, func(ctx context.Context) error {
		member, err := s.members.FindByID(ctx, memberID)
		if err != nil {
			return err
		}
		if err := member.UpdateProfile(gender, interests, s.now()); err != nil {
			return err
		}
		if err := s.members.Save(ctx, member); err != nil {
			return err
		}
		updated = member
		return nil
	})
	if err != nil {
		return nil, storeOrDomain(err)
	}
	return updated, nil
}

// VerifyWithRankCard links a verified claim to the member. The DID is checked
// up front; the unique constraint still decides a race between two members
// presenting the same card.
func (s *Service) VerifyWithRankCard(ctx context.Context, memberID id.MemberID, did string, rank id.Rank) (*models.MemberProfile, error) {
	taken, err := s.members.ExistsByLinkedVCDID(ctx, did)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	if taken {
		return nil, dErrors.New(dErrors.CodeUniqueViolation, "rank card is already linked to another member")
	}

	var verified *models.MemberProfile
	err = s.retry(ctx, func(ctx context.Context) error {
		member, err := s.members.FindByID(ctx, memberID)
		if err != nil {
			return err
		}
		if err := member.VerifyWithRankCard(did, rank, s.now()); err != nil {
			return err
		}
		if err := s.members.Save(ctx, member); err != nil {
			return err
		}
		verified = member
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeUniqueViolation, "rank card is already linked to another member")
		}
		return nil, storeOrDomain(err)
	}

	s.metrics.IncrementVerified()
	s.logger.InfoContext(ctx, "member verified",
		"member_id", memberID.String(),
		"rank", string(rank),
	)
	return verified, nil
}

// AccessibleForums lists ACTIVE forums the member may see under the
// adjacency rule. Unverified members see none.
func (s *Service) AccessibleForums(ctx context.Context, memberID id.MemberID) ([]*forummodels.Forum, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	if !member.IsVerified() {
		return []*forummodels.Forum{}, nil
	}
	forums, err := s.forums.List(ctx, forumstore.Filter{
		Status: forummodels.StatusActive,
		Ranks:  member.DerivedRank.AdjacentRanks(),
	})
	if err != nil {
		return nil, dErrors.FromStore(err, "forum")
	}
	visible := make([]*forummodels.Forum, 0, len(forums))
	for _, f := range forums {
		ok, err := member.CanAccessForum(f.RequiredRank)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, f)
		}
	}
	return visible, nil
}

func (s *Service) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	return cas.Retry(ctx, s.attempts, func(ctx context.Context) error {
		if attempt > 0 {
			s.metrics.IncrementLockRetry()
		}
		attempt++
		return fn(ctx)
	})
}

// storeOrDomain passes coded domain errors through and translates store
// sentinels.
func storeOrDomain(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.FromStore(err, "member profile")
}
