package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-paas/control-plane/internal/apperr"
	"github.com/corvus-paas/control-plane/internal/models"
	"github.com/corvus-paas/control-plane/internal/store"
)

// handleListDeployments implements GET /deployments.
func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	deployments, err := s.st.ListDeployments(r.Context())
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to list deployments", err))
		return
	}
	if deployments == nil {
		deployments = []*models.Deployment{}
	}

	active := 0
	for _, d := range deployments {
		s.reconcile(r.Context(), d)
		if d.Status == models.StatusActive {
			active++
		}
	}
	s.metrics.SetDeploymentsActive(active)

	writeJSON(w, http.StatusOK, deployments)
}

// handleGetDeployment implements GET /deployments/{id}.
func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.loadDeployment(w, r)
	if err != nil {
		return
	}
	s.reconcile(r.Context(), d)
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDeployment implements DELETE /deployments/{id}: stops every
// container the deployment owns and removes the record.
func (s *Server) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ex.Delete(r.Context(), id); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to delete deployment", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestart implements POST /deployments/{id}/restart.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ex.Restart(r.Context(), id); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to restart deployment", err))
		return
	}
	d, err := s.st.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to reload deployment after restart", err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type rollbackRequest struct {
	Version *int `json:"version"`
}

// handleRollback implements POST /deployments/{id}/rollback.
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req rollbackRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid JSON request body", err))
			return
		}
	}

	if err := s.ex.Rollback(r.Context(), id, req.Version); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "rollback failed", err))
		return
	}
	s.metrics.IncRollback()

	d, err := s.st.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to reload deployment after rollback", err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type updateEnvRequest struct {
	EnvironmentVariables []models.EnvVar `json:"environmentVariables"`
}

// handleUpdateEnv implements PUT /deployments/{id}/env.
func (s *Server) handleUpdateEnv(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateEnvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "invalid JSON request body", err))
		return
	}

	if err := s.ex.UpdateEnvironmentVariables(r.Context(), id, req.EnvironmentVariables); err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to update environment variables", err))
		return
	}
	d, err := s.st.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to reload deployment after env update", err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleLogs implements GET /deployments/{id}/logs?tail=N. During
// building/queued it concatenates Log Bus message fields; otherwise it
// returns the container's recent stdout, per spec.md §4.7.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	d, err := s.loadDeployment(w, r)
	if err != nil {
		return
	}

	if d.Status == models.StatusQueued || d.Status == models.StatusBuilding {
		text, err := s.bus.ReadAllMessages(r.Context(), d.ID)
		if err != nil {
			writeError(w, s.logger, apperr.New(apperr.Internal, "failed to read log bus", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"logs": text})
		return
	}

	if d.ContainerID == nil {
		writeJSON(w, http.StatusOK, map[string]string{"logs": ""})
		return
	}

	tail := 100
	if raw := r.URL.Query().Get("tail"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			tail = n
		}
	}

	text, err := s.eng.Logs(r.Context(), *d.ContainerID, tail)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to read container logs", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": text})
}

// handleStats implements GET /deployments/{id}/stats: a live one-shot
// engine snapshot, not the stored metric history (that is /metrics).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	d, err := s.loadDeployment(w, r)
	if err != nil {
		return
	}
	if d.ContainerID == nil {
		writeError(w, s.logger, apperr.New(apperr.BadRequest, "deployment has no running container", nil))
		return
	}

	sample, err := s.eng.Stats(r.Context(), *d.ContainerID)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to read container stats", err))
		return
	}
	sample.DeploymentID = d.ID

	if err := s.st.InsertMetricSample(r.Context(), &sample); err != nil {
		s.logger.Warn().Err(err).Str("deployment_id", d.ID).Msg("failed to persist metric sample")
	}
	writeJSON(w, http.StatusOK, sample)
}

// handleMetrics implements GET /deployments/{id}/metrics?hours=H: stored
// metric history, bounded to hours*60 most-recent samples per spec.md §4.6.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	hours := 1
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			hours = n
		}
	}

	samples, err := s.st.QueryMetrics(r.Context(), id, hours)
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to query metrics", err))
		return
	}
	if samples == nil {
		samples = []*models.MetricSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

// loadDeployment fetches a deployment by the {id} URL param, writing a 404
// response itself on a miss so every handler above can just `return` on a
// non-nil error.
func (s *Server) loadDeployment(w http.ResponseWriter, r *http.Request) (*models.Deployment, error) {
	id := chi.URLParam(r, "id")
	d, err := s.st.GetDeployment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, s.logger, apperr.New(apperr.NotFound, "deployment not found", err))
		return nil, err
	}
	if err != nil {
		writeError(w, s.logger, apperr.New(apperr.Internal, "failed to load deployment", err))
		return nil, err
	}
	return d, nil
}

// reconcile refreshes status against the engine's view of the container
// for active/stopped/failed records, per spec.md §4.7 — queued/building are
// never overwritten, since those are exclusively the executor's to set.
func (s *Server) reconcile(ctx context.Context, d *models.Deployment) {
	if d.Status != models.StatusActive && d.Status != models.StatusStopped && d.Status != models.StatusFailed {
		return
	}
	if d.ContainerID == nil {
		return
	}

	result, err := s.eng.Inspect(ctx, *d.ContainerID)
	if err != nil {
		return
	}

	if d.Status == models.StatusActive && !result.Running {
		d.Status = models.StatusFailed
		if err := s.st.UpsertDeployment(ctx, d); err != nil {
			s.logger.Warn().Err(err).Str("deployment_id", d.ID).Msg("failed to persist reconciled status")
		}
	}
}
