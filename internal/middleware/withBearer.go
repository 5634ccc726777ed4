package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/models"
)

// WithBearer rejects requests whose Authorization header does not carry
// the configured bearer secret. It is a no-op when the gate is disabled.
func WithBearer(auth service.AuthIface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !auth.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Authorized(r.Header.Get("Authorization")) {
				w.Header().Set("WWW-Authenticate", service.Challenge)
				writeDetail(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Detail: detail})
}
