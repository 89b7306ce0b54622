package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/edvin/mailapi/internal/api/response"
)

// Auth rejects requests whose Authorization header is not exactly
// "Bearer <token>". Both sides are digested first so the comparison takes
// the same time whatever the header length. The response never says whether
// the header was absent, malformed or wrong.
func Auth(token string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte("Bearer " + token))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := sha256.Sum256([]byte(r.Header.Get("Authorization")))
			if token == "" || subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				response.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
