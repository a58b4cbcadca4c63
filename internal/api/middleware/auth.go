package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/sergiomvj/faceblog/internal/api/response"
)

// Auth returns a middleware that validates the X-API-Key header against the
// configured admin key. Comparison is over SHA-256 digests in constant time.
func Auth(adminKey string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(adminKey))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			got := sha256.Sum256([]byte(key))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
