package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rankgate/internal/chatchannel"
	"rankgate/internal/forum/metrics"
	"rankgate/internal/forum/models"
	forumstore "rankgate/internal/forum/store"
	membermodels "rankgate/internal/member/models"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/cas"
)

const DefaultJoinRetryAttempts = 5

type Store interface {
	Save(ctx context.Context, f *models.Forum) error
	FindByID(ctx context.Context, forumID id.ForumID) (*models.Forum, error)
	List(ctx context.Context, filter forumstore.Filter) ([]*models.Forum, error)
	IsMember(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (bool, error)
	AddMember(ctx context.Context, f *models.Forum, memberID id.MemberID) error
	RemoveMember(ctx context.Context, f *models.Forum, memberID id.MemberID) error
}

type MemberReader interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*membermodels.MemberProfile, error)
}

// CreateCommand carries the validated input for Create.
type CreateCommand struct {
	CreatorID    id.MemberID
	RequiredRank id.Rank
	Capacity     int
	Description  string
}

// Service coordinates forum creation and membership counting.
//
// Admission to a forum requires both rank rules: the member-side adjacency
// rule (MemberProfile.CanAccessForum) and the forum-side admission rule
// (Forum.CanMemberAccess). In practice a member enters forums at their own
// rank or one step below.
type Service struct {
	forums   Store
	members  MemberReader
	channels chatchannel.Provider
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

// WithJoinRetryAttempts bounds the load-mutate-swap loop for Join and Leave.
func WithJoinRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func New(forums Store, members MemberReader, channels chatchannel.Provider, opts ...Option) *Service {
	s := &Service{
		forums:   forums,
		members:  members,
		channels: channels,
		attempts: DefaultJoinRetryAttempts,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a forum. The creator must be verified at or above the
// forum's required rank. The creator is not counted as a member.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Forum, error) {
	if !cmd.RequiredRank.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidRank, "invalid required rank: "+string(cmd.RequiredRank))
	}
	creator, err := s.members.FindByID(ctx, cmd.CreatorID)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	if !creator.IsVerified() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only verified members can create forums")
	}
	if !creator.DerivedRank.IsAtLeast(cmd.RequiredRank) {
		return nil, dErrors.New(dErrors.CodeForbidden, "creator rank is below the forum's required rank")
	}

	handle, err := s.channels.NewChannel(ctx, chatchannel.KindForum, creator.ID, creator.Nickname)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to allocate forum channel")
	}

	forum, err := models.NewForum(id.NewForumID(), cmd.RequiredRank, handle.ChannelID, cmd.Capacity, creator.ID, cmd.Description, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.forums.Save(ctx, forum); err != nil {
		return nil, dErrors.FromStore(err, "forum")
	}

	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "forum created",
		"forum_id", forum.ID.String(),
		"required_rank", string(forum.RequiredRank),
		"creator_id", creator.ID.String(),
	)
	return forum, nil
}

func (s *Service) Get(ctx context.Context, forumID id.ForumID) (*models.Forum, error) {
	forum, err := s.forums.FindByID(ctx, forumID)
	if err != nil {
		return nil, dErrors.FromStore(err, "forum")
	}
	return forum, nil
}

// List filters by status and rank; zero values match everything.
func (s *Service) List(ctx context.Context, status models.Status, rank id.Rank) ([]*models.Forum, error) {
	if status != "" && !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid forum status: "+string(status))
	}
	filter := forumstore.Filter{Status: status}
	if rank != "" {
		if !rank.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidRank, "invalid rank: "+string(rank))
		}
		filter.Ranks = []id.Rank{rank}
	}
	forums, err := s.forums.List(ctx, filter)
	if err != nil {
		return nil, dErrors.FromStore(err, "forum")
	}
	return forums, nil
}

// Join admits a member and increments the forum's member count. Conflicting
// writers cause a reload, so admission is re-checked against fresh state.
// Joining twice is a conflict.
func (s *Service) Join(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (*models.Forum, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, dErrors.FromStore(err, "member profile")
	}
	if !member.IsVerified() {
		s.metrics.IncrementJoin("denied")
		return nil, dErrors.New(dErrors.CodeForbidden, "only verified members can join forums")
	}

	var joined *models.Forum
	err = s.retry(ctx, func(ctx context.Context) error {
		forum, err := s.forums.FindByID(ctx, forumID)
		if err != nil {
			return err
		}
		already, err := s.forums.IsMember(ctx, forumID, memberID)
		if err != nil {
			return err
		}
		if already {
			return forumstore.ErrAlreadyMember
		}
		if err := admit(member, forum); err != nil {
			return err
		}
		if err := forum.IncrementMemberCount(s.now()); err != nil {
			return err
		}
		if err := s.forums.AddMember(ctx, forum, memberID); err != nil {
			return err
		}
		joined = forum
		return nil
	})
	if err != nil {
		err = storeOrDomain(err)
		outcome := "error"
		if dErrors.HasCode(err, dErrors.CodeForbidden) || dErrors.HasCode(err, dErrors.CodeArchivedForum) ||
			dErrors.HasCode(err, dErrors.CodeConflict) {
			outcome = "denied"
		}
		s.metrics.IncrementJoin(outcome)
		return nil, err
	}

	s.metrics.IncrementJoin("joined")
	s.logger.InfoContext(ctx, "member joined forum",
		"forum_id", forumID.String(),
		"member_id", memberID.String(),
		"member_count", joined.MemberCount,
	)
	return joined, nil
}

func admit(member *membermodels.MemberProfile, forum *models.Forum) error {
	if forum.IsArchived() {
		return dErrors.New(dErrors.CodeArchivedForum, "forum is archived")
	}
	visible, err := member.CanAccessForum(forum.RequiredRank)
	if err != nil {
		return err
	}
	if !visible {
		return dErrors.New(dErrors.CodeForbidden, "forum rank is outside the member's range")
	}
	if forum.IsFull() {
		return dErrors.New(dErrors.CodeForbidden, "forum is full")
	}
	admitted, err := forum.CanMemberAccess(member.DerivedRank)
	if err != nil {
		return err
	}
	if !admitted {
		return dErrors.New(dErrors.CodeForbidden, "member rank is below the forum's required rank")
	}
	return nil
}

// Leave removes the member's membership and decrements the member count.
// Only members who joined can leave.
func (s *Service) Leave(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (*models.Forum, error) {
	var left *models.Forum
	err := s.retry(ctx, func(ctx context.Context) error {
		forum, err := s.forums.FindByID(ctx, forumID)
		if err != nil {
			return err
		}
		joined, err := s.forums.IsMember(ctx, forumID, memberID)
		if err != nil {
			return err
		}
		if !joined {
			return forumstore.ErrNotMember
		}
		if err := forum.DecrementMemberCount(s.now()); err != nil {
			return err
		}
		if err := s.forums.RemoveMember(ctx, forum, memberID); err != nil {
			return err
		}
		left = forum
		return nil
	})
	if err != nil {
		return nil, storeOrDomain(err)
	}
	s.metrics.IncrementLeave()
	s.logger.InfoContext(ctx, "member left forum",
		"forum_id", forumID.String(),
		"member_id", memberID.String(),
	)
	return left, nil
}

// Archive soft-deletes a forum on behalf of its creator.
func (s *Service) Archive(ctx context.Context, forumID id.ForumID, actorID id.MemberID) (*models.Forum, error) {
	var archived *models.Forum
	err := s.retry(ctx, func(ctx context.Context) error {
		forum, err := s.forums.FindByID(ctx, forumID)
		if err != nil {
			return err
		}
		if forum.CreatorID != actorID {
			return dErrors.New(dErrors.CodeForbidden, "only the creator can archive a forum")
		}
		if err := forum.Archive(s.now()); err != nil {
			return err
		}
		if err := s.forums.Save(ctx, forum); err != nil {
			return err
		}
		archived = forum
		return nil
	})
	if err != nil {
		return nil, storeOrDomain(err)
	}
	s.metrics.IncrementArchived()
	s.logger.InfoContext(ctx, "forum archived",
		"forum_id", forumID.String(),
	)
	return archived, nil
}

func (s *Service) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	return cas.Retry(ctx, s.attempts, func(ctx context.Context) error {
		if attempt > 0 {
			s.metrics.IncrementRetry()
		}
		attempt++
		return fn(ctx)
	})
}

func storeOrDomain(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, forumstore.ErrAlreadyMember):
		return dErrors.New(dErrors.CodeConflict, "member has already joined this forum")
	case errors.Is(err, forumstore.ErrNotMember):
		return dErrors.New(dErrors.CodeNotFound, "member has not joined this forum")
	}
	return dErrors.FromStore(err, "forum")
}
