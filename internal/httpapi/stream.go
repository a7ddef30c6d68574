package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corvus-paas/control-plane/internal/apperr"
	"github.com/corvus-paas/control-plane/internal/logbus"
)

// pollInterval and silenceTimeout are client-visible per spec.md §5's
// design notes and must be preserved even if the transport underneath
// changes from list-polling to pub/sub.
const (
	pollInterval   = 500 * time.Millisecond
	silenceTimeout = 20 * time.Minute
)

// handleStreamLogs implements GET /deployments/{id}/stream: opens SSE and
// tails the Log Bus from offset 0.
func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.streamLogBus(w, r, id, 0)
}

// streamLogBus writes SSE frames for every Log Bus event from offset
// onward until a terminal `done` event, the Log Bus silence timeout
// elapses, or the client disconnects.
func (s *Server) streamLogBus(w http.ResponseWriter, r *http.Request, deploymentID string, offset int64) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, s.logger, apperr.New(apperr.Internal, "streaming unsupported", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	lastActivity := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		events, next, err := s.bus.Read(ctx, deploymentID, offset)
		if err != nil {
			s.logger.Warn().Err(err).Str("deployment_id", deploymentID).Msg("failed to read log bus events")
			return
		}

		if len(events) == 0 {
			if time.Since(lastActivity) > silenceTimeout {
				return
			}
			time.Sleep(pollInterval)
			continue
		}

		lastActivity = time.Now()
		offset = next

		for _, event := range events {
			frame, err := json.Marshal(event)
			if err != nil {
				continue
			}
			w.Write([]byte("data: ")) //nolint:errcheck
			w.Write(frame)            //nolint:errcheck
			w.Write([]byte("\n\n"))   //nolint:errcheck
			flusher.Flush()

			if event.Type == logbus.EventDone {
				return
			}
		}
	}
}
