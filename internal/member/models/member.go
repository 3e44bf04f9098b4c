package models

import (
	"strings"
	"time"

	"rankgate/internal/events"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/cas"
)

// Status is the verification state of a member.
type Status string

const (
	StatusGeneral  Status = "GENERAL"
	StatusVerified Status = "VERIFIED"
)

func (s Status) IsValid() bool {
	return s == StatusGeneral || s == StatusVerified
}

// MemberProfile is the aggregate root for a platform member.
//
// Invariants:
//   - OIDCSubjectID and Nickname are non-blank at creation
//   - Status moves GENERAL -> VERIFIED exactly once
//   - LinkedVCDID and DerivedRank are both empty or both set, and only set together
//   - DerivedRank, when set, is a valid Rank
//   - Version starts at 1 and grows by one per successful mutation
//
// Gender and Interests are plaintext here. Encryption at rest is a store concern.
type MemberProfile struct {
	ID            id.MemberID `json:"id"`
	OIDCSubjectID string      `json:"-"`
	Status        Status      `json:"status"`
	Nickname      string      `json:"nickname"`
	Gender        string      `json:"gender,omitempty"`
	Interests     string      `json:"interests,omitempty"`
	LinkedVCDID   string      `json:"linked_vc_did,omitempty"`
	DerivedRank   id.Rank     `json:"derived_rank,omitempty"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	events.Recorder `json:"-"`
	cas.Tracker     `json:"-"`
}

// NewMemberProfile creates a GENERAL member on first successful login.
// Gender and interests are optional here.
func NewMemberProfile(memberID id.MemberID, oidcSubjectID, nickname, gender, interests string, now time.Time) (*MemberProfile, error) {
	if memberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "member id is required")
	}
	if strings.TrimSpace(oidcSubjectID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "oidc subject id cannot be empty")
	}
	if strings.TrimSpace(nickname) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "nickname cannot be empty")
	}
	return &MemberProfile{
		ID:            memberID,
		OIDCSubjectID: oidcSubjectID,
		Status:        StatusGeneral,
		Nickname:      nickname,
		Gender:        gender,
		Interests:     interests,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (m *MemberProfile) IsVerified() bool {
	return m.Status == StatusVerified
}

// VerifyWithRankCard links a verified Rank Card. One-shot.
func (m *MemberProfile) VerifyWithRankCard(did string, rank id.Rank, now time.Time) error {
	if m.Status != StatusGeneral {
		return dErrors.New(dErrors.CodeAlreadyVerified, "member is already verified")
	}
	if strings.TrimSpace(did) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "did cannot be empty")
	}
	if rank == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "rank cannot be empty")
	}
	if !rank.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid rank: "+string(rank))
	}

	m.Status = StatusVerified
	m.LinkedVCDID = did
	m.DerivedRank = rank
	m.touch(now)
	m.Record(MemberVerified{
		MemberID:  m.ID,
		DID:       did,
		Rank:      rank,
		Timestamp: m.UpdatedAt,
	})
	return nil
}

// CanAccessForum applies the adjacency rule: a verified member sees forums
// whose required rank is their own or one step away. This is the visibility
// rule; hard admission is Forum.CanMemberAccess and deliberately differs.
func (m *MemberProfile) CanAccessForum(forumRank id.Rank) (bool, error) {
	if !forumRank.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidArgument, "invalid forum rank: "+string(forumRank))
	}
	if m.Status != StatusVerified {
		return false, nil
	}
	return m.DerivedRank.IsAdjacentTo(forumRank), nil
}

// UpdateProfile replaces the sensitive profile fields. Repeatable.
func (m *MemberProfile) UpdateProfile(gender, interests string, now time.Time) error {
	if strings.TrimSpace(gender) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "gender cannot be empty")
	}
	if strings.TrimSpace(interests) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "interests cannot be empty")
	}
	m.Gender = gender
	m.Interests = interests
	m.touch(now)
	m.Record(MemberProfileUpdated{
		MemberID:  m.ID,
		Timestamp: m.UpdatedAt,
	})
	return nil
}

// Validate checks the invariants of a rehydrated aggregate.
func (m *MemberProfile) Validate() error {
	if !m.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid member status: "+string(m.Status))
	}
	hasDID, hasRank := m.LinkedVCDID != "", m.DerivedRank != ""
	if hasDID != hasRank {
		return dErrors.New(dErrors.CodeInvalidArgument, "linked did and derived rank must be set together")
	}
	if hasRank && !m.DerivedRank.IsValid() {
		return dErrors.New(dErrors.CodeInvalidArgument, "invalid derived rank: "+string(m.DerivedRank))
	}
	if (m.Status == StatusVerified) != hasDID {
		return dErrors.New(dErrors.CodeInvalidArgument, "verification fields do not match status")
	}
	if m.Version < 1 {
		return dErrors.New(dErrors.CodeInvalidArgument, "version must be positive")
	}
	return nil
}

// touch bumps the version and keeps UpdatedAt monotonic.
func (m *MemberProfile) touch(now time.Time) {
	m.Version++
	if now.After(m.UpdatedAt) {
		m.UpdatedAt = now
	}
}
