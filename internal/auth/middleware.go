package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Middleware guards the API with a single shared bearer token.
type Middleware struct {
	token []byte
	log   zerolog.Logger
}

func NewMiddleware(token string, log zerolog.Logger) Middleware {
	return Middleware{token: []byte(token), log: log.With().Str("component", "auth").Logger()}
}

func (m Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" {
			m.reject(w, r, "missing authorization")
			return
		}
		const prefix = "Bearer "
		if !strings.HasPrefix(authz, prefix) {
			m.reject(w, r, "invalid token")
			return
		}
		given := []byte(strings.TrimPrefix(authz, prefix))
		if subtle.ConstantTimeCompare(given, m.token) != 1 {
			m.reject(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	m.log.Debug().Str("path", r.URL.Path).Str("reason", reason).Msg("request rejected")
	http.Error(w, reason, http.StatusUnauthorized)
}
