package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/corvus-paas/control-plane/internal/apperr"
)

// writeJSON serializes payload to JSON and writes it with the given status
// code. If encoding fails (it should not, with statically typed response
// structs), it falls back to a plain error body rather than a silent empty
// response.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"internal encoding error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck
}

// writeError maps err's apperr.Kind to a status code and writes the
// standard {"error": "..."} body, per spec.md §7's propagation table.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusForKind(apperr.KindOf(err))
	logger.Error().Err(err).Int("status", status).Msg("request error")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.BadRequest:
		return http.StatusBadRequest
	case apperr.AuthRequired:
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.EngineUnavailable:
		return http.StatusServiceUnavailable
	case apperr.SourceFetchFailed, apperr.BuildFailed, apperr.RunFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
