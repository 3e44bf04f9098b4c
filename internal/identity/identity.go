// Package identity validates ID tokens from the OIDC provider and turns
// them into the identity a member logs in with. The authorization-code
// exchange happens upstream; this package only sees the resulting ID token.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "rankgate/pkg/domain-errors"
)

// Identity is what the platform learns about a member from the provider.
// DisplayName may be empty.
type Identity struct {
	SubjectID   string
	DisplayName string
}

type idTokenClaims struct {
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Nickname          string `json:"nickname"`
	jwt.RegisteredClaims
}

func (c *idTokenClaims) displayName() string {
	for _, candidate := range []string{c.Nickname, c.PreferredUsername, c.Name} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Verifier checks HS256 ID tokens signed with the client secret shared with
// the provider.
type Verifier struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(sharedSecret, issuer, audience string) *Verifier {
	return &Verifier{key: []byte(sharedSecret), issuer: issuer, audience: audience, now: time.Now}
}

func (v *Verifier) Verify(idToken string) (Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return Identity{}, dErrors.New(dErrors.CodeBadRequest, "id_token is required")
	}
	parsed, err := jwt.ParseWithClaims(idToken, &idTokenClaims{}, func(*jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "id token has expired")
		}
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid id token")
	}
	claims, ok := parsed.Claims.(*idTokenClaims)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "id token has no subject")
	}
	return Identity{SubjectID: claims.Subject, DisplayName: claims.displayName()}, nil
}

// Sign builds an ID token the Verifier accepts. Used by the dev login flow
// and tests in place of a real provider.
func (v *Verifier) Sign(subject, name string, ttl time.Duration) (string, error) {
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, idTokenClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			Audience:  []string{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.key)
}
