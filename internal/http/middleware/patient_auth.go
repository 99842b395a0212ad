package middleware

import (
	"net/http"

	"github.com/oakwell/portal-api/internal/session"
)

// PatientAuth resolves the logged-in patient from the bearer token and stores
// the identity on the request context. Requests without a valid token are
// rejected; handlers never accept a client-supplied patient id.
func PatientAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				// Websocket clients cannot set headers; fall back to a query param.
				if q := r.URL.Query().Get("token"); q != "" {
					token = "Bearer " + q
				}
			}
			patient, err := session.FromBearerHeader(secret, token)
			if err != nil {
				http.Error(w, "invalid or missing session token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithPatient(r.Context(), patient)))
		})
	}
}
