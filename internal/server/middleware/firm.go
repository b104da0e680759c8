package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

func RequireFirm() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fid, ok := FirmIDFromContext(r.Context())
			if !ok || fid == uuid.Nil {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"valid firm required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
