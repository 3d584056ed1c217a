package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// SecretHeader carries the shared secret on machine-triggered invocations,
// scheduled ones included.
const SecretHeader = "X-Service-Secret"

// RequireSecret rejects requests whose shared secret header does not match
// the configured value. An empty configured secret disables the guard, which
// only happens in development.
func RequireSecret(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(SecretHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]string{"error": "invalid service secret"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
