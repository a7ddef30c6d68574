package queue

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Janitor periodically requeues reservations that have outlived JobTimeout,
// the "crashed worker" recovery path for the at-least-once guarantee.
type Janitor struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewJanitor constructs a janitor over the same Redis client the queue uses.
func NewJanitor(rdb *redis.Client, logger zerolog.Logger) *Janitor {
	return &Janitor{rdb: rdb, logger: logger}
}

// Run sweeps stale reservations every interval until ctx is canceled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.sweepOnce(ctx); err != nil {
				j.logger.Warn().Err(err).Msg("janitor sweep failed")
			}
		}
	}
}

// sweepOnce requeues every claimed-set member whose claim timestamp is
// older than JobTimeout, retrying transient Redis errors with backoff
// before giving up on this pass (the next tick tries again regardless).
func (j *Janitor) sweepOnce(ctx context.Context) error {
	return backoff.Retry(func() error {
		cutoff := float64(time.Now().Add(-JobTimeout).Unix())
		stale, err := j.rdb.ZRangeByScore(ctx, claimedSetKey, &redis.ZRangeBy{
			Min: "0",
			Max: formatFloat(cutoff),
		}).Result()
		if err != nil {
			return err
		}

		for _, member := range stale {
			workerID, rawPayload, ok := strings.Cut(member, "|")
			if !ok {
				j.rdb.ZRem(ctx, claimedSetKey, member)
				continue
			}

			pipe := j.rdb.TxPipeline()
			pipe.LRem(ctx, reservedKeyPrefix+workerID, 1, rawPayload)
			pipe.RPush(ctx, mainQueueKey, rawPayload)
			pipe.ZRem(ctx, claimedSetKey, member)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			j.logger.Warn().Str("worker", workerID).Msg("requeued abandoned job reservation")
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
