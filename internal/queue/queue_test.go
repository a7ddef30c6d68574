package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-paas/control-plane/internal/models"
)

func newTestQueue(t *testing.T, workerID string) (*Queue, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, workerID), rdb, mr
}

func sampleJob(id string) Job {
	return Job{
		DeploymentID:   id,
		ProjectDir:     "/tmp/" + id,
		DeploymentType: models.TypeService,
		Config:         models.Config{Port: 3000},
		EnqueuedAt:     time.Now().UTC(),
	}
}

func TestEnqueueAndClaim_RoundTripsJob(t *testing.T) {
	q, _, _ := newTestQueue(t, "worker-1")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, sampleJob("dep-1")))

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dep-1", job.DeploymentID)
	assert.Equal(t, 3000, job.Config.Port)
}

func TestClaim_ReturnsErrNoJobWhenQueueEmpty(t *testing.T) {
	q, _, _ := newTestQueue(t, "worker-1")

	_, err := q.Claim(context.Background())
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestAck_RemovesFromReservedListAndStoresResult(t *testing.T) {
	q, rdb, _ := newTestQueue(t, "worker-2")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, sampleJob("dep-2")))
	job, err := q.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Ack(ctx, job, JobResult{Success: true}))

	remaining, err := rdb.LLen(ctx, q.reservedKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	result, found, err := q.Result(ctx, "dep-2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, result.Success)
}

func TestResult_NotFoundWhenNeverAcked(t *testing.T) {
	q, _, _ := newTestQueue(t, "worker-3")

	_, found, err := q.Result(context.Background(), "never-ran")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAck_RecordsFailureResult(t *testing.T) {
	q, _, _ := newTestQueue(t, "worker-4")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, sampleJob("dep-3")))
	job, err := q.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Ack(ctx, job, JobResult{Success: false, Error: "build failed"}))

	result, found, err := q.Result(ctx, "dep-3")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, result.Success)
	assert.Equal(t, "build failed", result.Error)
}

func TestJanitor_RequeuesStaleClaims(t *testing.T) {
	q, rdb, mr := newTestQueue(t, "worker-crashed")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, sampleJob("dep-4")))
	_, err := q.Claim(ctx)
	require.NoError(t, err)

	// Backdate the claim past JobTimeout so the janitor treats it as abandoned.
	members, err := rdb.ZRangeWithScores(ctx, claimedSetKey, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, members, 1)
	stale := members[0]
	require.NoError(t, rdb.ZAdd(ctx, claimedSetKey, redis.Z{
		Score:  float64(time.Now().Add(-JobTimeout - time.Minute).Unix()),
		Member: stale.Member,
	}).Err())

	j := NewJanitor(rdb, zerolog.Nop())
	require.NoError(t, j.sweepOnce(ctx))

	mainLen, err := rdb.LLen(ctx, mainQueueKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), mainLen, "stale job should be requeued to the main queue")

	claimedLen, err := rdb.ZCard(ctx, claimedSetKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), claimedLen)

	_ = mr
}
