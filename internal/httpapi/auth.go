package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corvus-paas/control-plane/internal/apperr"
)

// sessionClaims is the thin API-token this middleware issues/verifies, the
// "session-backed token storage" spec.md §6 names for the /login/github
// family of endpoints without detailing — GitHub OAuth itself stays a
// collaborator outside core scope, so this is the token shape, not the
// OAuth flow.
type sessionClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// issueSessionToken signs a short-lived HS256 token for subject (a GitHub
// login, once the OAuth collaborator is wired in).
func (s *Server) issueSessionToken(subject string) (string, error) {
	claims := sessionClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSigningKey))
}

func (s *Server) verifySessionToken(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.jwtSigningKey), nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.New(apperr.AuthRequired, "invalid or expired session token", err)
	}
	return claims, nil
}

// requireSession is applied only to the endpoints spec.md §6 actually
// scopes to a session (the /user/repos collaborator endpoint); the core
// deployment surface has no per-user ownership model, per spec.md's
// non-goal of "multi-tenant isolation beyond per-deployment containers".
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, s.logger, apperr.New(apperr.AuthRequired, "missing bearer session token", nil))
			return
		}

		if _, err := s.verifySessionToken(raw); err != nil {
			writeError(w, s.logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
