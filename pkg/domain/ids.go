package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "rankgate/pkg/domain-errors"
)

// Typed identifiers. Each is a distinct named type over uuid.UUID so the
// compiler rejects passing a ForumID where a MemberID is expected.
type (
	MemberID       uuid.UUID
	ForumID        uuid.UUID
	ChatSessionID  uuid.UUID
	VerificationID uuid.UUID
)

func NewMemberID() MemberID             { return MemberID(uuid.New()) }
func NewForumID() ForumID               { return ForumID(uuid.New()) }
func NewChatSessionID() ChatSessionID   { return ChatSessionID(uuid.New()) }
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

func (id MemberID) String() string       { return uuid.UUID(id).String() }
func (id ForumID) String() string        { return uuid.UUID(id).String() }
func (id ChatSessionID) String() string  { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }

func (id MemberID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ForumID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ChatSessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseMemberID parses external input into a MemberID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID("member id", s)
	return MemberID(u), err
}

// ParseForumID parses external input into a ForumID.
func ParseForumID(s string) (ForumID, error) {
	u, err := parseUUID("forum id", s)
	return ForumID(u), err
}

// ParseChatSessionID parses external input into a ChatSessionID.
func ParseChatSessionID(s string) (ChatSessionID, error) {
	u, err := parseUUID("chat session id", s)
	return ChatSessionID(u), err
}

// ParseVerificationID parses external input into a VerificationID.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID("verification id", s)
	return VerificationID(u), err
}

// parseUUID rejects empty, malformed, and nil UUIDs. uuid.Parse accepts a few
// non-canonical forms (braces, urn prefix); only the 36-char form is allowed.
func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidArgument, kind+" is required")
	}
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidArgument, kind+" cannot be nil")
	}
	return u, nil
}

func (id MemberID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ForumID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ChatSessionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id VerificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *MemberID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ForumID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ChatSessionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VerificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
