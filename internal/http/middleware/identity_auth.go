package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/dentalbook/internal/identity"
)

// RequireUser verifies the bearer token and stores the signed-in user on the
// request context for handlers to read with identity.FromContext.
func RequireUser(verifier *identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := identity.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			user, err := verifier.Verify(token)
			switch {
			case errors.Is(err, identity.ErrDisabled):
				writeError(w, http.StatusUnauthorized, "identity verification disabled")
				return
			case errors.Is(err, identity.ErrNoEmail):
				writeError(w, http.StatusForbidden, "token has no email claim")
				return
			case err != nil:
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
