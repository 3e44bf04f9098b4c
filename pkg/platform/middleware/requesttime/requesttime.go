// Package requesttime pins one "now" per request so every timestamp a
// request writes agrees.
package requesttime

import (
	"net/http"
	"time"

	"rankgate/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
