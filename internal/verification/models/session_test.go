package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
)

func newPending(t *testing.T, now time.Time) *Session {
	t.Helper()
	s, err := NewSession(id.NewVerificationID(), id.NewMemberID(), "tx-1", "lineit://verify", now, 10*time.Minute)
	require.NoError(t, err)
	return s
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("starts pending with expiry", func(t *testing.T) {
		s := newPending(t, now)
		assert.Equal(t, StatusPending, s.Status)
		assert.Equal(t, now.Add(10*time.Minute), s.ExpiresAt)
		assert.False(t, s.IsExpired(now))
		assert.True(t, s.IsExpired(s.ExpiresAt))
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewSession(id.NewVerificationID(), id.NewMemberID(), " ", "", now, time.Minute)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		_, err = NewSession(id.NewVerificationID(), id.MemberID{}, "tx", "", now, time.Minute)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		_, err = NewSession(id.NewVerificationID(), id.NewMemberID(), "tx", "", now, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func TestTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("resolve records the claim once", func(t *testing.T) {
		s := newPending(t, now)
		require.NoError(t, s.Resolve("did:x", id.RankLifeWinnerS, now))
		assert.Equal(t, StatusSucceeded, s.Status)
		assert.Equal(t, "did:x", s.DID)

		err := s.Fail("late", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyTerminal))
	})

	t.Run("resolve validates the claim", func(t *testing.T) {
		s := newPending(t, now)
		assert.True(t, dErrors.HasCode(s.Resolve("", id.RankLifeWinnerS, now), dErrors.CodeInvalidArgument))
		assert.True(t, dErrors.HasCode(s.Resolve("did:x", id.Rank("BOSS"), now), dErrors.CodeInvalidRank))
		assert.Equal(t, StatusPending, s.Status)
	})

	t.Run("fail and expire are terminal", func(t *testing.T) {
		s := newPending(t, now)
		require.NoError(t, s.Fail("rejected by holder", now))
		assert.Equal(t, "rejected by holder", s.FailureReason)
		assert.Error(t, s.Expire(now))

		s = newPending(t, now)
		require.NoError(t, s.Expire(now))
		assert.Error(t, s.Resolve("did:x", id.RankNewbieVillage, now))
	})
}
