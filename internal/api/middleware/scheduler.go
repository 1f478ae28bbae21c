package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/edvin/agency/internal/api/response"
)

// SchedulerToken guards internal endpoints called by the external
// scheduler. An empty configured token disables them.
func SchedulerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				response.WriteError(w, http.StatusServiceUnavailable, "scheduler endpoint disabled")
				return
			}
			got := bearerToken(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				response.WriteError(w, http.StatusUnauthorized, "invalid scheduler token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
