// Package queue is the Job Queue: a durable, at-least-once FIFO of
// deployment build jobs over Redis. The control plane only ever enqueues;
// the separate worker process pool claims and executes jobs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corvus-paas/control-plane/internal/models"
)

const (
	mainQueueKey      = "jobs:queue"
	reservedKeyPrefix = "jobs:reserved:"
	resultKeyPrefix   = "jobs:result:"
	// claimedSetKey is a sorted set of "workerID|rawPayload" members scored
	// by claim time, letting the janitor find reservations older than
	// JobTimeout without scanning every worker's reserved list blind.
	claimedSetKey = "jobs:claimed"

	// JobTimeout is the per-job visibility timeout: a claimed job not acked
	// within this window is assumed abandoned and requeued.
	JobTimeout = 15 * time.Minute
	// ResultTTL is how long a completed job's result stays queryable.
	ResultTTL = 24 * time.Hour

	blockTimeout = 5 * time.Second
)

// Job is one unit of deployment work, per spec.md §4.5.
type Job struct {
	DeploymentID   string        `json:"deployment_id"`
	ProjectDir     string        `json:"project_dir"`
	DeploymentType models.DeploymentType `json:"deployment_type"`
	Config         models.Config `json:"config"`
	EnqueuedAt     time.Time     `json:"enqueued_at"`
}

// workerRegistryKey is a set of every worker identity that has constructed a
// Queue. The janitor does not read it: it finds in-flight jobs and their
// reserved lists through the members of claimedSetKey.
const workerRegistryKey = "jobs:workers"

// Queue wraps a Redis client with the reliable-queue pattern: BLMOVE claims
// a job onto a worker-specific reserved list, LREM acks it off that list on
// completion, and a janitor goroutine requeues jobs whose reservation has
// outlived JobTimeout.
type Queue struct {
	rdb      *redis.Client
	workerID string
}

// New wraps an existing Redis client for a specific worker identity and adds
// that identity to workerRegistryKey. The worker identity scopes the
// reserved list, and is recorded with each claim so the janitor can tell
// which worker owns an in-flight job.
func New(rdb *redis.Client, workerID string) *Queue {
	q := &Queue{rdb: rdb, workerID: workerID}
	q.rdb.SAdd(context.Background(), workerRegistryKey, workerID)
	return q
}

func (q *Queue) reservedKey() string {
	return reservedKeyPrefix + q.workerID
}

// Enqueue appends a job to the tail of the main queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job for %q: %w", job.DeploymentID, err)
	}
	if err := q.rdb.RPush(ctx, mainQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job for %q: %w", job.DeploymentID, err)
	}
	return nil
}

// ErrNoJob is returned by Claim when the block timeout elapses with nothing
// to claim; callers should simply loop.
var ErrNoJob = errors.New("queue: no job available")

// Claim blocks up to a short poll interval for the next job, atomically
// moving it onto this worker's reserved list via BLMOVE so a crash between
// claim and ack leaves the job recoverable by the janitor.
func (q *Queue) Claim(ctx context.Context) (Job, error) {
	raw, err := q.rdb.BLMove(ctx, mainQueueKey, q.reservedKey(), "LEFT", "RIGHT", blockTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrNoJob
	}
	if err != nil {
		return Job{}, fmt.Errorf("failed to claim job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// drop an unparseable record rather than wedge the reserved list
		q.rdb.LRem(ctx, q.reservedKey(), 1, raw)
		return Job{}, fmt.Errorf("failed to unmarshal claimed job: %w", err)
	}

	if err := q.rdb.ZAdd(ctx, claimedSetKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: q.workerID + "|" + raw,
	}).Err(); err != nil {
		q.rdb.LRem(ctx, q.reservedKey(), 1, raw)
		return Job{}, fmt.Errorf("failed to record claim timestamp: %w", err)
	}
	return job, nil
}

// Ack removes a completed job from this worker's reserved list and records
// its result for ResultTTL.
func (q *Queue) Ack(ctx context.Context, job Job, result JobResult) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal acked job for %q: %w", job.DeploymentID, err)
	}
	if err := q.rdb.LRem(ctx, q.reservedKey(), 1, payload).Err(); err != nil {
		return fmt.Errorf("failed to ack job for %q: %w", job.DeploymentID, err)
	}
	q.rdb.ZRem(ctx, claimedSetKey, q.workerID+"|"+string(payload))

	resultPayload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result for %q: %w", job.DeploymentID, err)
	}
	if err := q.rdb.Set(ctx, resultKeyPrefix+job.DeploymentID, resultPayload, ResultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job result for %q: %w", job.DeploymentID, err)
	}
	return nil
}

// JobResult is the terminal outcome of a claimed job.
type JobResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result fetches a previously acked job's result, if it is still within
// ResultTTL.
func (q *Queue) Result(ctx context.Context, deploymentID string) (JobResult, bool, error) {
	raw, err := q.rdb.Get(ctx, resultKeyPrefix+deploymentID).Result()
	if errors.Is(err, redis.Nil) {
		return JobResult{}, false, nil
	}
	if err != nil {
		return JobResult{}, false, fmt.Errorf("failed to read job result for %q: %w", deploymentID, err)
	}

	var result JobResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return JobResult{}, false, fmt.Errorf("failed to unmarshal job result for %q: %w", deploymentID, err)
	}
	return result, true, nil
}
