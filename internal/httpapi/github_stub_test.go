package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLoginGithubStub_ReturnsBadRequest(t *testing.T) {
	s := newTestServer("test-signing-key")
	r := httptest.NewRequest(http.MethodPost, "/login/github", nil)
	rec := httptest.NewRecorder()

	s.handleLoginGithubStub(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogoutGithubStub_ReturnsLoggedOutTrue(t *testing.T) {
	s := newTestServer("test-signing-key")
	r := httptest.NewRequest(http.MethodPost, "/logout/github", nil)
	rec := httptest.NewRecorder()

	s.handleLogoutGithubStub(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["loggedOut"])
}

func TestHandleCheckGithubSessionStub_NoHeaderIsUnauthenticated(t *testing.T) {
	s := newTestServer("test-signing-key")
	r := httptest.NewRequest(http.MethodGet, "/check-github-session", nil)
	rec := httptest.NewRecorder()

	s.handleCheckGithubSessionStub(rec, r)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body["authenticated"])
}

func TestHandleCheckGithubSessionStub_ValidTokenIsAuthenticated(t *testing.T) {
	s := newTestServer("test-signing-key")
	token, err := s.issueSessionToken("octocat")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/check-github-session", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	s.handleCheckGithubSessionStub(rec, r)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "octocat", body["subject"])
}

func TestHandleUserReposStub_ReturnsBadRequest(t *testing.T) {
	s := newTestServer("test-signing-key")
	r := httptest.NewRequest(http.MethodGet, "/user/repos", nil)
	rec := httptest.NewRecorder()

	s.handleUserReposStub(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
