package models

import (
	"time"

	id "rankgate/pkg/domain"
)

const aggregateType = "member_profile"

// MemberVerified is emitted when a Rank Card unlocks a derived rank.
type MemberVerified struct {
	MemberID  id.MemberID `json:"member_id"`
	DID       string      `json:"did"`
	Rank      id.Rank     `json:"rank"`
	Timestamp time.Time   `json:"timestamp"`
}

func (MemberVerified) EventType() string       { return "member.verified" }
func (MemberVerified) AggregateType() string   { return aggregateType }
func (e MemberVerified) AggregateID() string   { return e.MemberID.String() }
func (e MemberVerified) OccurredAt() time.Time { return e.Timestamp }

// MemberProfileUpdated is emitted when gender/interests change. The new values
// are deliberately absent from the payload.
type MemberProfileUpdated struct {
	MemberID  id.MemberID `json:"member_id"`
	Timestamp time.Time   `json:"timestamp"`
}

func (MemberProfileUpdated) EventType() string       { return "member.profile_updated" }
func (MemberProfileUpdated) AggregateType() string   { return aggregateType }
func (e MemberProfileUpdated) AggregateID() string   { return e.MemberID.String() }
func (e MemberProfileUpdated) OccurredAt() time.Time { return e.Timestamp }
