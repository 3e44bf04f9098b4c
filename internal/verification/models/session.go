package models

import (
	"strings"
	"time"

	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
)

// Status tracks one Rank Card verification round trip.
// PENDING -> SUCCEEDED | FAILED | EXPIRED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusExpired
}

// Session links a member to a verifier transaction. It is short lived and
// removed by the expiry sweep once ExpiresAt has passed.
type Session struct {
	ID            id.VerificationID `json:"id"`
	MemberID      id.MemberID       `json:"member_id"`
	TransactionID string            `json:"transaction_id"`
	RequestURI    string            `json:"request_uri,omitempty"`
	Status        Status            `json:"status"`
	DID           string            `json:"did,omitempty"`
	Rank          id.Rank           `json:"rank,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

func NewSession(sessionID id.VerificationID, memberID id.MemberID, transactionID, requestURI string, now time.Time, ttl time.Duration) (*Session, error) {
	if sessionID.IsNil() || memberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "verification and member ids are required")
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "transaction id cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "verification ttl must be positive")
	}
	return &Session{
		ID:            sessionID,
		MemberID:      memberID,
		TransactionID: transactionID,
		RequestURI:    requestURI,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}, nil
}

func (s *Session) IsExpired(at time.Time) bool {
	return !at.Before(s.ExpiresAt)
}

// Resolve records the verified claim.
func (s *Session) Resolve(did string, rank id.Rank, now time.Time) error {
	if err := s.requirePending(); err != nil {
		return err
	}
	if strings.TrimSpace(did) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "did cannot be empty")
	}
	if !rank.IsValid() {
		return dErrors.New(dErrors.CodeInvalidRank, "invalid rank: "+string(rank))
	}
	s.Status = StatusSucceeded
	s.DID = did
	s.Rank = rank
	s.UpdatedAt = now
	return nil
}

func (s *Session) Fail(reason string, now time.Time) error {
	if err := s.requirePending(); err != nil {
		return err
	}
	s.Status = StatusFailed
	s.FailureReason = reason
	s.UpdatedAt = now
	return nil
}

func (s *Session) Expire(now time.Time) error {
	if err := s.requirePending(); err != nil {
		return err
	}
	s.Status = StatusExpired
	s.UpdatedAt = now
	return nil
}

func (s *Session) requirePending() error {
	if s.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeAlreadyTerminal, "verification is already "+string(s.Status))
	}
	return nil
}
