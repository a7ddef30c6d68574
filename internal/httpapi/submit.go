package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/corvus-paas/control-plane/internal/apperr"
	"github.com/corvus-paas/control-plane/internal/archive"
	"github.com/corvus-paas/control-plane/internal/gitsrc"
	"github.com/corvus-paas/control-plane/internal/models"
	"github.com/corvus-paas/control-plane/internal/queue"
	"github.com/corvus-paas/control-plane/internal/slugs"
	"github.com/corvus-paas/control-plane/internal/store"
)

// submitRequest is the shared shape of /deploy-stream's JSON body and
// /deploy-local's form-encoded sibling fields, per spec.md §6.
type submitRequest struct {
	ProjectName          string             `json:"projectName"`
	GithubRepo           string             `json:"githubRepo"`
	Branch               string             `json:"branch"`
	DeploymentType       models.DeploymentType `json:"deploymentType"`
	Config               models.Config      `json:"config"`
	EnvironmentVariables []models.EnvVar    `json:"environmentVariables"`
	PersistentStorage    bool               `json:"persistentStorage"`
	HealthCheckPath      string             `json:"healthCheckPath"`
	AutoRestart          bool               `json:"autoRestart"`
}

func (req *submitRequest) applyConvenienceFields() {
	if req.PersistentStorage {
		req.Config.PersistentStorage = true
	}
	if req.HealthCheckPath != "" {
		req.Config.HealthCheckPath = req.HealthCheckPath
	}
	if req.AutoRestart {
		req.Config.AutoRestart = true
	}
}

func (req *submitRequest) validate(requireRepo bool) error {
	if req.ProjectName == "" {
		return apperr.New(apperr.BadRequest, "projectName is required", nil)
	}
	if requireRepo && req.GithubRepo == "" {
		return apperr.New(apperr.BadRequest, "githubRepo is required", nil)
	}
	if req.DeploymentType != models.TypeStatic && req.DeploymentType != models.TypeService {
		return apperr.New(apperr.BadRequest, "deploymentType must be 'static' or 'service'", nil)
	}
	if req.Branch == "" {
		req.Branch = "main"
	}
	return nil
}

// newDeploymentRecord assembles the initial `queued` record written before
// a build is ever enqueued — the record exists, and its URL (built from a
// freshly generated slug) is assigned, before the container is even started.
func newDeploymentRecord(req submitRequest, source models.SourceKind, repo, branch, filename *string, baseDomain string) *models.Deployment {
	id := uuid.New().String()
	slug := slugs.Generate()
	now := store.UtcNow()

	return &models.Deployment{
		ID:                   id,
		ProjectName:          req.ProjectName,
		Source:               source,
		Repo:                 repo,
		Branch:               branch,
		Filename:             filename,
		DeploymentType:       req.DeploymentType,
		Status:               models.StatusQueued,
		URL:                  fmt.Sprintf("http://%s.%s", slug, baseDomain),
		Config:               req.Config,
		EnvironmentVariables: req.EnvironmentVariables,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// handleDeployStream implements POST /deploy-stream: clones the remote
// source, writes the queued record, enqueues the job, then opens an SSE
// stream tailing the Log Bus until `done`, per spec.md §4.7.
func (s *Server) handleDeployStream(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid JSON request body", err))
		return
	}
	req.applyConvenienceFields()
	if err := req.validate(true); err != nil {
		writeError(w, s.logger, err)
		return
	}

	d := newDeploymentRecord(req, models.SourceRemoteRepo, &req.GithubRepo, &req.Branch, nil, s.opts.BaseDomain)

	projectDir := filepath.Join(s.opts.ServeRoot, d.ID)
	if err := gitsrc.Clone(req.GithubRepo, req.Branch, projectDir, nil); err != nil {
		writeError(w, s.logger, apperr.New(apperr.SourceFetchFailed, "failed to clone repository", err))
		return
	}

	if err := s.st.CreateDeployment(r.Context(), d); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to persist deployment record", err))
		return
	}

	job := queue.Job{
		DeploymentID:   d.ID,
		ProjectDir:     projectDir,
		DeploymentType: d.DeploymentType,
		Config:         d.Config,
		EnqueuedAt:     store.UtcNow(),
	}
	if err := s.q.Enqueue(r.Context(), job); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to enqueue deployment job", err))
		return
	}
	s.metrics.IncDeployment(string(d.DeploymentType))

	s.streamLogBus(w, r, d.ID, 0)
}

// handleDeployLocal implements POST /deploy-local: accepts a multipart
// archive, extracts it (flattening a single top-level directory if
// present), writes the record, enqueues the job, and returns the record
// synchronously — no SSE here, per spec.md §4.7.
func (s *Server) handleDeployLocal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "failed to parse multipart form", err))
		return
	}

	req := submitRequest{
		ProjectName:    r.FormValue("projectName"),
		Branch:         r.FormValue("branch"),
		DeploymentType: models.DeploymentType(r.FormValue("deploymentType")),
	}
	if rawConfig := r.FormValue("config"); rawConfig != "" {
		_ = json.Unmarshal([]byte(rawConfig), &req.Config)
	}
	if rawEnv := r.FormValue("environmentVariables"); rawEnv != "" {
		_ = json.Unmarshal([]byte(rawEnv), &req.EnvironmentVariables)
	}
	req.PersistentStorage = r.FormValue("persistentStorage") == "true"
	req.HealthCheckPath = r.FormValue("healthCheckPath")
	req.AutoRestart = r.FormValue("autoRestart") == "true"
	req.applyConvenienceFields()
	if err := req.validate(false); err != nil {
		writeError(w, s.logger, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "file part is required", err))
		return
	}
	defer file.Close()

	filename := header.Filename
	d := newDeploymentRecord(req, models.SourceUploadedArchive, nil, nil, &filename, s.opts.BaseDomain)

	projectDir := filepath.Join(s.opts.ServeRoot, d.ID)
	if err := extractUpload(file, header, projectDir); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "failed to extract uploaded archive", err))
		return
	}

	if err := s.st.CreateDeployment(r.Context(), d); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to persist deployment record", err))
		return
	}

	job := queue.Job{
		DeploymentID:   d.ID,
		ProjectDir:     projectDir,
		DeploymentType: d.DeploymentType,
		Config:         d.Config,
		EnqueuedAt:     store.UtcNow(),
	}
	if err := s.q.Enqueue(r.Context(), job); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to enqueue deployment job", err))
		return
	}
	s.metrics.IncDeployment(string(d.DeploymentType))

	writeJSON(w, http.StatusCreated, d)
}

// extractUpload stages the uploaded file to a temp path (zip.OpenReader
// needs a real file, not a stream), extracts it, then flattens a single
// top-level directory if the whole archive is wrapped in one — the
// boundary case spec.md §8 calls out explicitly.
func extractUpload(file multipart.File, header *multipart.FileHeader, destDir string) error {
	tmp, err := os.CreateTemp("", "corvus-upload-*.zip")
	if err != nil {
		return fmt.Errorf("failed to stage upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		return fmt.Errorf("failed to write staged upload: %w", err)
	}

	if err := archive.ExtractZip(tmp.Name(), destDir); err != nil {
		return err
	}
	return flattenSingleTopLevelDir(destDir)
}

// flattenSingleTopLevelDir moves a lone top-level directory's contents up
// into destDir, the common shape of a "Download ZIP" export from GitHub.
func flattenSingleTopLevelDir(destDir string) error {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	nested := filepath.Join(destDir, entries[0].Name())
	nestedEntries, err := os.ReadDir(nested)
	if err != nil {
		return err
	}
	for _, e := range nestedEntries {
		if err := os.Rename(filepath.Join(nested, e.Name()), filepath.Join(destDir, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(nested)
}
