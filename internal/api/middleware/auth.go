package middleware

import (
	"crypto/subtle"
	"net/http"
)

const (
	APIKeyHeader         = "X-API-Key"
	SchedulerTokenHeader = "X-Scheduler-Token"

	// APIKeyQueryParam is accepted where headers cannot be set, such as
	// browser WebSocket handshakes.
	APIKeyQueryParam = "api_key"
)

// RequireAPIKey rejects requests whose X-API-Key header (or api_key query
// parameter) does not match key. An empty key disables the check.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return requireSecret(APIKeyHeader, APIKeyQueryParam, key, "A valid API key is required")
}

// RequireSchedulerToken guards the scheduled trigger endpoint the same way,
// header only.
func RequireSchedulerToken(token string) func(http.Handler) http.Handler {
	return requireSecret(SchedulerTokenHeader, "", token, "A valid scheduler token is required")
}

func requireSecret(header, param, secret, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" && param != "" {
				got = r.URL.Query().Get(param)
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
