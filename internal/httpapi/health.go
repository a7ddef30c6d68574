package httpapi

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns 200 when the engine and log bus are both reachable,
// 503 otherwise, per spec.md §4.7/§6.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.eng.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "engine unreachable"})
		return
	}

	if err := s.bus.Info(ctx, "corvus-health-probe", ""); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "log bus unreachable"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
