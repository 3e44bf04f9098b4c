package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rankgate/pkg/domain-errors"
)

func newVerifier() *Verifier {
	return NewVerifier("provider-shared-secret", "https://op.example", "rankgate")
}

func TestVerify(t *testing.T) {
	v := newVerifier()

	t.Run("valid token yields subject and name", func(t *testing.T) {
		token, err := v.Sign("sub-123", "Alice", time.Minute)
		require.NoError(t, err)

		ident, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "sub-123", ident.SubjectID)
		assert.Equal(t, "Alice", ident.DisplayName)
	})

	t.Run("nickname wins over name", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, idTokenClaims{
			Name:     "Alice Liddell",
			Nickname: " ally ",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "sub-1", Issuer: v.issuer, Audience: []string{v.audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		})
		signed, err := token.SignedString(v.key)
		require.NoError(t, err)
		ident, err := v.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, "ally", ident.DisplayName)
	})

	t.Run("missing name is allowed", func(t *testing.T) {
		token, err := v.Sign("sub-9", "", time.Minute)
		require.NoError(t, err)
		ident, err := v.Verify(token)
		require.NoError(t, err)
		assert.Empty(t, ident.DisplayName)
	})
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier()

	_, err := v.Verify("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	expired, err := v.Sign("sub", "A", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	other := NewVerifier("provider-shared-secret", "https://evil.example", "rankgate")
	forged, err := other.Sign("sub", "A", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "issuer mismatch")

	noSubject, err := v.Sign("", "A", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
