package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/corvus-paas/control-plane/internal/apperr"
	"github.com/corvus-paas/control-plane/internal/archive"
	"github.com/corvus-paas/control-plane/internal/detect"
	"github.com/corvus-paas/control-plane/internal/gitsrc"
	"github.com/corvus-paas/control-plane/internal/models"
)

type detectionResponse struct {
	models.DetectionResult
	Suggestions []string `json:"suggestions"`
}

// suggestionsFor generates the human-readable hints spec.md §4.7's
// expansion describes, keyed on (runtime, framework) — the same axis the
// Recipe Synthesizer itself branches on.
func suggestionsFor(det models.DetectionResult) []string {
	switch {
	case det.Runtime == models.RuntimePython && det.Framework == "django":
		return []string{"Detected Django project — will run migrate and collectstatic at container start"}
	case det.Runtime == models.RuntimePython && det.Framework == "flask":
		return []string{"Detected Flask project — will serve via the project's declared WSGI runner, falling back to a dev server if none is declared"}
	case det.Runtime == models.RuntimeNode && det.Type == models.TypeStatic:
		return []string{fmt.Sprintf("Detected a static %s build — will publish the built output directory", det.Framework)}
	case det.Runtime == models.RuntimeNode && det.Type == models.TypeService:
		return []string{fmt.Sprintf("Detected a Node.js %s service — will run the project's start script", det.Framework)}
	case det.Runtime == models.RuntimeJava:
		return []string{"Detected a Java project — will build with the project's declared build tool"}
	default:
		return []string{"Could not confidently detect a framework — review the suggested config before deploying"}
	}
}

// handleDetectProject implements POST /detect-project (multipart): detects
// runtime/framework directly from an uploaded archive without creating a
// deployment.
func (s *Server) handleDetectProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "failed to parse multipart form", err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "file part is required", err))
		return
	}
	defer file.Close()

	tmpDir, err := os.MkdirTemp("", "corvus-detect-*")
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to create temp directory", err))
		return
	}
	defer os.RemoveAll(tmpDir)

	tmpZip, err := os.CreateTemp("", "corvus-detect-*.zip")
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to stage upload", err))
		return
	}
	defer os.Remove(tmpZip.Name())
	defer tmpZip.Close()

	if _, err := io.Copy(tmpZip, file); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to write staged upload", err))
		return
	}
	if err := archive.ExtractZip(tmpZip.Name(), tmpDir); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "failed to extract archive", err))
		return
	}
	_ = flattenSingleTopLevelDir(tmpDir)

	det := detect.Detect(tmpDir)
	writeJSON(w, http.StatusOK, detectionResponse{DetectionResult: det, Suggestions: suggestionsFor(det)})
}

type detectGithubRequest struct {
	GithubRepo string `json:"githubRepo"`
	Branch     string `json:"branch"`
}

// handleDetectGithub implements POST /detect-github (JSON): shallow-clones
// the repo to a scratch directory, detects, and discards the clone.
func (s *Server) handleDetectGithub(w http.ResponseWriter, r *http.Request) {
	var req detectGithubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid JSON request body", err))
		return
	}
	if req.GithubRepo == "" {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "githubRepo is required", nil))
		return
	}
	if req.Branch == "" {
		req.Branch = "main"
	}

	tmpDir, err := os.MkdirTemp("", "corvus-detect-*")
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to create temp directory", err))
		return
	}
	defer os.RemoveAll(tmpDir)

	cloneDir := filepath.Join(tmpDir, "repo")
	if err := gitsrc.Clone(req.GithubRepo, req.Branch, cloneDir, nil); err != nil {
		writeError(w, s.logger, apperr.New(apperr.SourceFetchFailed, "failed to clone repository", err))
		return
	}

	det := detect.Detect(cloneDir)
	writeJSON(w, http.StatusOK, detectionResponse{DetectionResult: det, Suggestions: suggestionsFor(det)})
}
