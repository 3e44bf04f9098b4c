package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rankgate/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseMemberID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseMemberID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseMemberID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseMemberID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, MemberID(validUUID), id)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE member_profiles;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Braced UUID", "{550e8400-e29b-41d4-a716-446655440000}", true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForumID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errMember := ParseMemberID(validUUID)
		_, errForum := ParseForumID(validUUID)
		_, errSession := ParseChatSessionID(validUUID)
		_, errVerification := ParseVerificationID(validUUID)

		require.NoError(t, errMember)
		require.NoError(t, errForum)
		require.NoError(t, errSession)
		require.NoError(t, errVerification)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errMember := ParseMemberID(input)
			_, errForum := ParseForumID(input)
			_, errSession := ParseChatSessionID(input)
			_, errVerification := ParseVerificationID(input)

			require.Error(t, errMember)
			require.Error(t, errForum)
			require.Error(t, errSession)
			require.Error(t, errVerification)
		})
	}
}

func TestIDs_JSONUsesCanonicalText(t *testing.T) {
	memberID := NewMemberID()

	raw, err := json.Marshal(struct {
		ID MemberID `json:"id"`
	}{ID: memberID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+memberID.String()+`"}`, string(raw))

	var decoded struct {
		ID MemberID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, memberID, decoded.ID)
}
