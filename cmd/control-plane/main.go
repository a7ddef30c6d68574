// Command control-plane runs the Control API: the HTTP surface that accepts
// deployment submissions, serves the dashboard's status/log/metrics reads,
// and proxies into running containers. The actual build work happens in the
// separate worker process (cmd/worker); this process only ever enqueues.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corvus-paas/control-plane/internal/config"
	"github.com/corvus-paas/control-plane/internal/engine"
	"github.com/corvus-paas/control-plane/internal/executor"
	"github.com/corvus-paas/control-plane/internal/httpapi"
	"github.com/corvus-paas/control-plane/internal/logbus"
	"github.com/corvus-paas/control-plane/internal/logging"
	"github.com/corvus-paas/control-plane/internal/metrics"
	"github.com/corvus-paas/control-plane/internal/queue"
	"github.com/corvus-paas/control-plane/internal/store"
	"github.com/corvus-paas/control-plane/internal/store/postgres"
	"github.com/corvus-paas/control-plane/internal/store/sqlite"
)

func main() {
	root := &cobra.Command{
		Use:   "control-plane",
		Short: "Serves the corvus-paas Control API",
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

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open deployment store: %w", err)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
	defer rdb.Close()
	bus := logbus.New(rdb)
	q := queue.New(rdb, "control-plane")

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

	mc := metrics.NewCollector()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, mc, logger); err != nil {
			logger.Warn().Err(err).Msg("metrics listener exited")
		}
	}()

	srv := httpapi.New(st, bus, q, eng, ex, mc, logger, httpapi.Options{
		CORSOrigins:   cfg.CORSOrigins,
		BaseDomain:    cfg.BaseDomain,
		PublicIP:      cfg.PublicIP,
		ServeRoot:     cfg.ServeRoot,
		JWTSigningKey: cfg.JWTSigningKey,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE log streams hold the response open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("control API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownErr <- err
			return
		}
		close(shutdownErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-shutdownErr:
		if err != nil {
			return fmt.Errorf("control API listener failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}

// openStore picks the Deployment Store dialect config.Load validated:
// sqlite for single-node local development, postgres for pooled
// multi-node deployments.
func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	if cfg.DatabaseType == "postgresql" {
		return postgres.Open(cfg.DatabaseURL, logger)
	}
	return sqlite.Open(cfg.DatabasePath, logger)
}

func redisAddr(url string) string {
	// RedisURL carries the redis:// scheme and an optional DB index the
	// go-redis client wants split out; a bare host:port is also accepted
	// unchanged for local development.
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
