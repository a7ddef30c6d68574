package logbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) (*Bus, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb), mr
}

func TestPublishAndRead_ReturnsEventsAndAdvancesOffset(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Info(ctx, "dep-1", "starting build"))
	require.NoError(t, bus.Log(ctx, "dep-1", "installing deps"))

	events, offset, err := bus.Read(ctx, "dep-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventInfo, events[0].Type)
	assert.Equal(t, "starting build", events[0].Message)
	assert.Equal(t, EventLog, events[1].Type)
	assert.Equal(t, int64(2), offset)
}

func TestRead_FromNonZeroOffsetReturnsOnlyNewEvents(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Info(ctx, "dep-2", "one"))
	require.NoError(t, bus.Info(ctx, "dep-2", "two"))

	events, offset, err := bus.Read(ctx, "dep-2", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "two", events[0].Message)
	assert.Equal(t, int64(2), offset)
}

func TestDone_CarriesSuccessAndResult(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	result := &DoneResult{ContainerID: "c1", Port: 8080, DirectURL: "http://1.2.3.4:8080"}
	require.NoError(t, bus.Done(ctx, "dep-3", true, result))

	events, _, err := bus.Read(ctx, "dep-3", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
	require.NotNil(t, events[0].Success)
	assert.True(t, *events[0].Success)
	require.NotNil(t, events[0].Result)
	assert.Equal(t, "c1", events[0].Result.ContainerID)
}

func TestReadAllMessages_ConcatenatesMessagesWithNewlines(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Info(ctx, "dep-4", "first"))
	require.NoError(t, bus.Log(ctx, "dep-4", "second"))

	text, err := bus.ReadAllMessages(ctx, "dep-4")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", text)
}

func TestPublish_SetsTTLOnKey(t *testing.T) {
	bus, mr := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Info(ctx, "dep-5", "hi"))

	ttlRemaining := mr.TTL(key("dep-5"))
	assert.Greater(t, ttlRemaining, time.Duration(0))
	assert.LessOrEqual(t, ttlRemaining, time.Hour)
}

func TestError_PublishesErrorEvent(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Error(ctx, "dep-6", "build failed"))

	events, _, err := bus.Read(ctx, "dep-6", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}
