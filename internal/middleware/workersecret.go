package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// WorkerSecret gates internal worker endpoints behind a shared secret,
// taken from the X-Worker-Secret header or a `secret` query param. An empty
// configured secret rejects everything so the gate fails closed when the
// env var is missing.
func WorkerSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Worker-Secret")
			if presented == "" {
				presented = r.URL.Query().Get("secret")
			}
			if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": "invalid worker secret",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
