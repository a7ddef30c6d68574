package httpapi

import (
	"net/http"
	"strings"

	"github.com/corvus-paas/control-plane/internal/apperr"
)

// The /login/github, /logout/github, /check-github-session, and
// /user/repos routes belong to the GitHub OAuth collaborator spec.md §6
// places outside core scope: this control plane issues and verifies its
// own session tokens (see auth.go) but does not perform the OAuth
// authorization-code exchange itself. These handlers keep the route
// surface stable for a caller wiring that collaborator in front of this
// service, without pretending to speak OAuth here.

// handleLoginGithubStub implements POST /login/github.
func (s *Server) handleLoginGithubStub(w http.ResponseWriter, r *http.Request) {
	writeError(w, s.logger, apperr.New(apperr.BadRequest, "GitHub OAuth login is handled by an external collaborator, not this control plane", nil))
}

// handleLogoutGithubStub implements POST /logout/github.
func (s *Server) handleLogoutGithubStub(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// handleCheckGithubSessionStub implements GET /check-github-session: reports
// whether the caller presented a valid session token issued by
// issueSessionToken, without asserting anything about GitHub itself.
func (s *Server) handleCheckGithubSessionStub(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	claims, err := s.verifySessionToken(raw)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "subject": claims.Subject})
}

// handleUserReposStub implements GET /user/repos, gated by requireSession.
// Listing the caller's actual GitHub repositories is the OAuth
// collaborator's job; this stub only proves the session layer it would sit
// behind is wired correctly.
func (s *Server) handleUserReposStub(w http.ResponseWriter, r *http.Request) {
	writeError(w, s.logger, apperr.New(apperr.BadRequest, "repository listing is handled by an external collaborator, not this control plane", nil))
}
