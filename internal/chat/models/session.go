package models

import (
	"strings"
	"time"

	"rankgate/internal/events"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/cas"
)

// SessionType records how a private chat came about.
type SessionType string

const (
	SessionTypeDailyMatch     SessionType = "DAILY_MATCH"
	SessionTypeGroupInitiated SessionType = "GROUP_INITIATED"
)

func (t SessionType) IsValid() bool {
	return t == SessionTypeDailyMatch || t == SessionTypeGroupInitiated
}

// ParseSessionType validates external input.
func ParseSessionType(s string) (SessionType, error) {
	t := SessionType(strings.TrimSpace(s))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid session type: "+s)
	}
	return t, nil
}

// Status is the state of a private chat session.
// ACTIVE -> EXPIRED | TERMINATED; both targets are terminal.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusExpired    Status = "EXPIRED"
	StatusTerminated Status = "TERMINATED"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusExpired || s == StatusTerminated
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusTerminated
}

// PrivateChatSession is the aggregate root for an ephemeral 1:1 chat.
//
// Invariants:
//   - MemberAID != MemberBID, both non-nil
//   - TLKChannelID non-empty
//   - ExpiresAt is strictly after CreatedAt
//   - Once EXPIRED or TERMINATED the status never changes again
type PrivateChatSession struct {
	ID           id.ChatSessionID `json:"id"`
	TLKChannelID string           `json:"tlk_channel_id"`
	MemberAID    id.MemberID      `json:"member_a_id"`
	MemberBID    id.MemberID      `json:"member_b_id"`
	Type         SessionType      `json:"type"`
	Status       Status           `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Version      int              `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	events.Recorder `json:"-"`
	cas.Tracker     `json:"-"`
}

func NewPrivateChatSession(
	sessionID id.ChatSessionID,
	memberAID, memberBID id.MemberID,
	tlkChannelID string,
	sessionType SessionType,
	expiresAt time.Time,
	now time.Time,
) (*PrivateChatSession, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "session id is required")
	}
	if memberAID.IsNil() || memberBID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "both member ids are required")
	}
	if memberAID == memberBID {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "a session needs two different members")
	}
	if strings.TrimSpace(tlkChannelID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "tlk channel id cannot be empty")
	}
	if !sessionType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid session type: "+string(sessionType))
	}
	if !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "expires_at must be in the future")
	}
	return &PrivateChatSession{
		ID:           sessionID,
		TLKChannelID: tlkChannelID,
		MemberAID:    memberAID,
		MemberBID:    memberBID,
		Type:         sessionType,
		Status:       StatusActive,
		ExpiresAt:    expiresAt,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PrivateChatSession) IsActive() bool {
	return s.Status == StatusActive
}

// IsExpired reports at >= ExpiresAt. It does not change state; callers
// persist the transition with MarkAsExpired.
func (s *PrivateChatSession) IsExpired(at time.Time) bool {
	return !at.Before(s.ExpiresAt)
}

// Terminate ends the session on user or system request.
func (s *PrivateChatSession) Terminate(now time.Time) error {
	if s.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeAlreadyTerminal, "session is already "+string(s.Status))
	}
	s.Status = StatusTerminated
	s.touch(now)
	s.Record(SessionTerminated{
		SessionID: s.ID,
		MemberAID: s.MemberAID,
		MemberBID: s.MemberBID,
		Timestamp: s.UpdatedAt,
	})
	return nil
}

// MarkAsExpired records the time-based end of the session.
func (s *PrivateChatSession) MarkAsExpired(now time.Time) error {
	if s.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeAlreadyTerminal, "session is already "+string(s.Status))
	}
	s.Status = StatusExpired
	s.touch(now)
	s.Record(SessionExpired{
		SessionID: s.ID,
		MemberAID: s.MemberAID,
		MemberBID: s.MemberBID,
		ExpiresAt: s.ExpiresAt,
		Timestamp: s.UpdatedAt,
	})
	return nil
}

func (s *PrivateChatSession) InvolvesMember(memberID id.MemberID) bool {
	return s.MemberAID == memberID || s.MemberBID == memberID
}

// InvolvesMembers ignores argument order.
func (s *PrivateChatSession) InvolvesMembers(a, b id.MemberID) bool {
	return (s.MemberAID == a && s.MemberBID == b) || (s.MemberAID == b && s.MemberBID == a)
}

// OtherMemberID returns the counterpart of memberID, or false when memberID
// is not a participant.
func (s *PrivateChatSession) OtherMemberID(memberID id.MemberID) (id.MemberID, bool) {
	switch memberID {
	case s.MemberAID:
		return s.MemberBID, true
	case s.MemberBID:
		return s.MemberAID, true
	default:
		return id.MemberID{}, false
	}
}

// Validate checks the invariants of a rehydrated aggregate.
func (s *PrivateChatSession) Validate() error {
	switch {
	case !s.Status.IsValid():
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid session status: "+string(s.Status))
	case !s.Type.IsValid():
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid session type: "+string(s.Type))
	case s.MemberAID == s.MemberBID:
		return dErrors.New(dErrors.CodeInvalidArgument, "a session needs two different members")
	case !s.ExpiresAt.After(s.CreatedAt):
		return dErrors.New(dErrors.CodeInvalidArgument, "expires_at must be after created_at")
	case s.Version < 1:
		return dErrors.New(dErrors.CodeInvalidArgument, "version must be positive")
	}
	return nil
}

func (s *PrivateChatSession) touch(now time.Time) {
	s.Version++
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}
