package models

import (
	"strings"
	"time"

	"rankgate/internal/events"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/cas"
)

// Status is the lifecycle state of a forum.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusArchived
}

// Forum is the aggregate root for a rank-gated chat room.
//
// Invariants:
//   - RequiredRank is a valid Rank
//   - TLKChannelID and CreatorID are non-empty
//   - Capacity > 0
//   - MemberCount never drops below 0
//   - No mutation once ARCHIVED; archiving happens once
//
// MemberCount has no ceiling here. Concurrent joins serialize through the
// store's optimistic lock; a join that lands over capacity is accepted and
// IsFull reports it.
type Forum struct {
	ID           id.ForumID  `json:"id"`
	TLKChannelID string      `json:"tlk_channel_id"`
	RequiredRank id.Rank     `json:"required_rank"`
	Description  string      `json:"description,omitempty"`
	Capacity     int         `json:"capacity"`
	CreatorID    id.MemberID `json:"creator_id"`
	Status       Status      `json:"status"`
	MemberCount  int         `json:"member_count"`
	Version      int         `json:"version"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	events.Recorder `json:"-"`
	cas.Tracker     `json:"-"`
}

func NewForum(
	forumID id.ForumID,
	requiredRank id.Rank,
	tlkChannelID string,
	capacity int,
	creatorID id.MemberID,
	description string,
	now time.Time,
) (*Forum, error) {
	if forumID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "forum id is required")
	}
	if !requiredRank.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid required rank: "+string(requiredRank))
	}
	if strings.TrimSpace(tlkChannelID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "tlk channel id cannot be empty")
	}
	if capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "capacity must be positive")
	}
	if creatorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "creator id cannot be empty")
	}
	return &Forum{
		ID:           forumID,
		TLKChannelID: tlkChannelID,
		RequiredRank: requiredRank,
		Description:  strings.TrimSpace(description),
		Capacity:     capacity,
		CreatorID:    creatorID,
		Status:       StatusActive,
		MemberCount:  0,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (f *Forum) IsArchived() bool {
	return f.Status == StatusArchived
}

// IsFull reports MemberCount >= Capacity.
func (f *Forum) IsFull() bool {
	return f.MemberCount >= f.Capacity
}

// CanMemberAccess is the hard admission check used when physically joining:
// the forum is active, not full, and memberRank is at least RequiredRank.
// It is intentionally broader than MemberProfile.CanAccessForum's adjacency.
func (f *Forum) CanMemberAccess(memberRank id.Rank) (bool, error) {
	if !memberRank.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidArgument, "invalid member rank: "+string(memberRank))
	}
	if f.IsArchived() || f.IsFull() {
		return false, nil
	}
	return memberRank.IsAtLeast(f.RequiredRank), nil
}

// IncrementMemberCount records a member entering. Over-capacity is allowed.
func (f *Forum) IncrementMemberCount(now time.Time) error {
	if f.IsArchived() {
		return dErrors.New(dErrors.CodeArchivedForum, "forum is archived")
	}
	f.MemberCount++
	f.touch(now)
	return nil
}

// DecrementMemberCount records a member leaving.
func (f *Forum) DecrementMemberCount(now time.Time) error {
	if f.IsArchived() {
		return dErrors.New(dErrors.CodeArchivedForum, "forum is archived")
	}
	if f.MemberCount == 0 {
		return dErrors.New(dErrors.CodeNegativeCount, "member count is already zero")
	}
	f.MemberCount--
	f.touch(now)
	return nil
}

// Archive soft-deletes the forum. Irreversible.
func (f *Forum) Archive(now time.Time) error {
	if f.IsArchived() {
		return dErrors.New(dErrors.CodeAlreadyArchived, "forum is already archived")
	}
	f.Status = StatusArchived
	f.touch(now)
	f.Record(ForumArchived{
		ForumID:   f.ID,
		Timestamp: f.UpdatedAt,
	})
	return nil
}

// Validate checks the invariants of a rehydrated aggregate.
func (f *Forum) Validate() error {
	switch {
	case !f.Status.IsValid():
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid forum status: "+string(f.Status))
	case !f.RequiredRank.IsValid():
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid required rank: "+string(f.RequiredRank))
	case f.Capacity <= 0:
		return dErrors.New(dErrors.CodeInvalidArgument, "capacity must be positive")
	case f.MemberCount < 0:
		return dErrors.New(dErrors.CodeInvalidArgument, "member count cannot be negative")
	case f.Version < 1:
		return dErrors.New(dErrors.CodeInvalidArgument, "version must be positive")
	}
	return nil
}

func (f *Forum) touch(now time.Time) {
	f.Version++
	if now.After(f.UpdatedAt) {
		f.UpdatedAt = now
	}
}
