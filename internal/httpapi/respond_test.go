package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-paas/control-plane/internal/apperr"
)

func TestStatusForKind(t *testing.T) {
	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.BadRequest, http.StatusBadRequest},
		{apperr.AuthRequired, http.StatusUnauthorized},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.RateLimited, http.StatusTooManyRequests},
		{apperr.EngineUnavailable, http.StatusServiceUnavailable},
		{apperr.SourceFetchFailed, http.StatusUnprocessableEntity},
		{apperr.BuildFailed, http.StatusUnprocessableEntity},
		{apperr.RunFailed, http.StatusUnprocessableEntity},
		{apperr.Internal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusForKind(c.kind), "kind %v", c.kind)
	}
}

func TestWriteJSON_SetsStatusAndContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["id"])
}

func TestWriteError_MapsKindToStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	logger := zerolog.Nop()

	writeError(rec, logger, apperr.New(apperr.NotFound, "deployment not found", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NotFound: deployment not found", body["error"])
}
