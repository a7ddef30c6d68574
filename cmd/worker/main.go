// Command worker runs the Deployment Executor: it claims jobs the control
// plane enqueued, builds and starts their containers, and streams progress
// through the Log Bus. Multiple worker processes can run against the same
// Redis instance and Deployment Store for horizontal build throughput.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corvus-paas/control-plane/internal/config"
	"github.com/corvus-paas/control-plane/internal/engine"
	"github.com/corvus-paas/control-plane/internal/executor"
	"github.com/corvus-paas/control-plane/internal/logbus"
	"github.com/corvus-paas/control-plane/internal/logging"
	"github.com/corvus-paas/control-plane/internal/queue"
	"github.com/corvus-paas/control-plane/internal/store"
	"github.com/corvus-paas/control-plane/internal/store/postgres"
	"github.com/corvus-paas/control-plane/internal/store/sqlite"
)

// janitorInterval is how often the queue's stale-reservation sweep runs,
// independent of any single worker's own job timeout.
const janitorInterval = time.Minute

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "Runs the corvus-paas Deployment Executor",
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.LogFormat)
	workerID := "worker-" + uuid.New().String()[:8]
	logger = logger.With().Str("worker_id", workerID).Logger()

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open deployment store: %w", err)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
	defer rdb.Close()
	bus := logbus.New(rdb)
	q := queue.New(rdb, workerID)
	janitor := queue.NewJanitor(rdb, logger)

	eng, err := engine.New(logger, engine.Options{
		DefaultMemoryLimit: cfg.ContainerMemoryLimit,
		DefaultCPUQuota:    cfg.ContainerCPULimit,
		EngineHost:         cfg.EngineHost,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to container engine: %w", err)
	}
	defer eng.Close()

	ex := executor.New(eng, st, bus, q, logger, executor.Options{
		BaseDomain:         cfg.BaseDomain,
		DefaultMemoryLimit: cfg.ContainerMemoryLimit,
		DefaultCPUQuota:    cfg.ContainerCPULimit,
		PublicIP:           cfg.PublicIP,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go janitor.Run(ctx, janitorInterval)

	done := make(chan struct{})
	go func() {
		logger.Info().Msg("worker claiming jobs")
		ex.Run(ctx)
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-done:
		logger.Warn().Msg("executor loop exited unexpectedly")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("executor did not drain its in-flight job within the shutdown grace period")
	}
	return nil
}

func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	if cfg.DatabaseType == "postgresql" {
		return postgres.Open(cfg.DatabaseURL, logger)
	}
	return sqlite.Open(cfg.DatabasePath, logger)
}

func redisAddr(url string) string {
	const prefix = "redis://"
	trimmed := url
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		trimmed = url[len(prefix):]
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '/' {
			return trimmed[:i]
		}
	}
	return trimmed
}
