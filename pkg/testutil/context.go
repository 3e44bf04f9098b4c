package testutil

import (
	"net/http"

	id "rankgate/pkg/domain"
	"rankgate/pkg/requestcontext"
)

// AsMember returns middleware that authenticates every request as *memberID,
// standing in for the bearer-token middleware. A nil pointer leaves requests
// anonymous.
func AsMember(memberID *id.MemberID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if memberID != nil {
				r = r.WithContext(requestcontext.WithMemberID(r.Context(), *memberID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
