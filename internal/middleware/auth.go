package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/devdiary/internal/auth"
)

// BearerToken returns the token from an "Authorization: Bearer" header, or
// from the token query parameter for clients that cannot set headers
// (websocket upgrades, download links).
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireToken rejects requests without a valid gate token when the gate
// enforces API access. Accepted requests carry the session in their context.
func RequireToken(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !gate.EnforceAPI() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			sess, err := gate.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}
