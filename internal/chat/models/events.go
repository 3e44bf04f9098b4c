package models

import (
	"time"

	id "rankgate/pkg/domain"
)

const aggregateType = "private_chat_session"

// SessionTerminated is emitted on an explicit end of the session.
type SessionTerminated struct {
	SessionID id.ChatSessionID `json:"session_id"`
	MemberAID id.MemberID      `json:"member_a_id"`
	MemberBID id.MemberID      `json:"member_b_id"`
	Timestamp time.Time        `json:"timestamp"`
}

func (SessionTerminated) EventType() string       { return "chat_session.terminated" }
func (SessionTerminated) AggregateType() string   { return aggregateType }
func (e SessionTerminated) AggregateID() string   { return e.SessionID.String() }
func (e SessionTerminated) OccurredAt() time.Time { return e.Timestamp }

// SessionExpired is emitted when expiry is detected and persisted.
type SessionExpired struct {
	SessionID id.ChatSessionID `json:"session_id"`
	MemberAID id.MemberID      `json:"member_a_id"`
	MemberBID id.MemberID      `json:"member_b_id"`
	ExpiresAt time.Time        `json:"expires_at"`
	Timestamp time.Time        `json:"timestamp"`
}

func (SessionExpired) EventType() string       { return "chat_session.expired" }
func (SessionExpired) AggregateType() string   { return aggregateType }
func (e SessionExpired) AggregateID() string   { return e.SessionID.String() }
func (e SessionExpired) OccurredAt() time.Time { return e.Timestamp }
