package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "rankgate/pkg/domain"
	"rankgate/pkg/requestcontext"
)

type stubAuthenticator map[string]id.MemberID

func (s stubAuthenticator) Authenticate(token string) (id.MemberID, error) {
	memberID, ok := s[token]
	if !ok {
		return id.MemberID{}, errors.New("bad token")
	}
	return memberID, nil
}

func TestRequireAuth(t *testing.T) {
	memberID := id.NewMemberID()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen id.MemberID
	handler := RequireAuth(stubAuthenticator{"good": memberID}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestcontext.MemberID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/members/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, memberID, seen)

	for _, header := range []string{"", "Bearer ", "Basic good", "Bearer bad"} {
		rec := serve(header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
	}
}
