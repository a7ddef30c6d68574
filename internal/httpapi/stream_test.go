package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-paas/control-plane/internal/logbus"
)

func TestStreamLogBus_StopsAtDoneEvent(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	bus := logbus.New(rdb)

	ctx := context.Background()
	require.NoError(t, bus.Info(ctx, "dep-1", "starting"))
	require.NoError(t, bus.Done(ctx, "dep-1", true, &logbus.DoneResult{ContainerID: "c1"}))

	s := &Server{bus: bus, logger: zerolog.Nop()}

	r := httptest.NewRequest(http.MethodGet, "/deployments/dep-1/stream", nil)
	rec := httptest.NewRecorder()

	s.streamLogBus(rec, r, "dep-1", 0)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"type":"info"`)
	assert.Contains(t, rec.Body.String(), `"type":"done"`)
}
