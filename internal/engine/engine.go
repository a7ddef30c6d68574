// Package engine is the Container Engine Driver: a thin capability layer
// over a local container daemon. All Docker SDK calls are isolated here —
// no other package imports the Docker SDK directly — so the executor and
// Control API only ever depend on this package's interface, not Docker's.
package engine

import (
	"context"
	"fmt"
	"time"

	dockerclient "github.com/docker/docker/client"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/mem"
)

// Engine wraps the Docker SDK client with a logger and the resource-limit
// defaults applied to every container this driver runs.
type Engine struct {
	sdk    *dockerclient.Client
	logger zerolog.Logger

	defaultMemoryLimit string
	defaultCPUQuota    float64
	engineHost         string
}

// Options configures resource defaults and the reachable host the reverse
// proxy dials to reach running containers' host ports.
type Options struct {
	DefaultMemoryLimit string
	DefaultCPUQuota    float64
	EngineHost         string
}

// New connects to the Docker daemon via the default environment-derived
// transport (DOCKER_HOST, unix socket fallback) and pings it to fail fast at
// startup if the daemon is unreachable — an unreachable daemon means the
// platform cannot function, so the caller should treat a non-nil error here
// as a fatal startup condition (apperr.EngineUnavailable).
func New(logger zerolog.Logger, opts Options) (*Engine, error) {
	sdk, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker sdk client: %w", err)
	}

	eng := &Engine{
		sdk:                sdk,
		logger:             logger,
		defaultMemoryLimit: opts.DefaultMemoryLimit,
		defaultCPUQuota:    opts.DefaultCPUQuota,
		engineHost:         opts.EngineHost,
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := sdk.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	logger.Info().Str("host", sdk.DaemonHost()).Msg("engine connected")
	return eng, nil
}

// Close releases the underlying SDK client connection.
func (e *Engine) Close() error {
	return e.sdk.Close()
}

// Ping checks that the Docker daemon is still reachable, used by the
// Control API's health endpoint (spec.md §4.7: "200 when engine + log bus
// reachable; 503 otherwise").
func (e *Engine) Ping(ctx context.Context) error {
	_, err := e.sdk.Ping(ctx)
	return err
}

// EngineHost is the reachable host the reverse proxy dials to reach a
// published container port, configured explicitly rather than assuming
// host.docker.internal is resolvable and trustworthy in every deployment
// environment.
func (e *Engine) EngineHost() string {
	return e.engineHost
}

// CheckHostMemory logs a warning (never blocks a build) when available host
// memory is critically low. Grounded on gopsutil's mem.VirtualMemory, the
// same host-resource inspection primitive GLINCKER-glinrdock-core uses
// before scheduling work.
func (e *Engine) CheckHostMemory(ctx context.Context) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to read host memory stats")
		return
	}
	availablePercent := 100 - vm.UsedPercent
	if availablePercent < 10 {
		e.logger.Warn().
			Float64("available_percent", availablePercent).
			Msg("host memory critically low, build may be slow or OOM-killed")
	}
}
