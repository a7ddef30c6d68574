package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
)

// InspectResult is the subset of container state the executor and Control
// API need to reconcile a deployment's recorded status against reality.
type InspectResult struct {
	Running    bool
	ExitCode   int
	StartedAt  string
	FinishedAt string
}

// Inspect reads a container's current state by ID or name.
func (e *Engine) Inspect(ctx context.Context, containerID string) (InspectResult, error) {
	info, err := e.sdk.ContainerInspect(ctx, containerID)
	if err != nil {
		return InspectResult{}, fmt.Errorf("failed to inspect container %q: %w", containerID, err)
	}
	return InspectResult{
		Running:    info.State.Running,
		ExitCode:   info.State.ExitCode,
		StartedAt:  info.State.StartedAt,
		FinishedAt: info.State.FinishedAt,
	}, nil
}

// StopAndRemove stops and removes a container by name, tolerating the
// "already gone" case: the desired end state is simply no such container.
func (e *Engine) StopAndRemove(ctx context.Context, containerName string) error {
	containerID, err := e.findContainerByName(ctx, containerName)
	if err != nil {
		return err
	}
	if containerID == "" {
		return nil
	}

	stopTimeout := 10
	if err := e.sdk.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		e.logger.Warn().Err(err).Str("container", containerName).Msg("failed to stop container cleanly, forcing removal")
	}

	if err := e.sdk.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %q: %w", containerName, err)
	}
	e.logger.Info().Str("container", containerName).Msg("container stopped and removed")
	return nil
}

// Stop stops a running container without removing it, so that a later
// rollback can start it again. The executor uses it on delete, on cutover to
// a new version, on rollback, and when an evicted version is pruned.
func (e *Engine) Stop(ctx context.Context, containerID string) error {
	stopTimeout := 10
	if err := e.sdk.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		return fmt.Errorf("failed to stop container %q: %w", containerID, err)
	}
	return nil
}

// Start starts an existing (but stopped) container by ID without recreating
// it — used by rollback and restart, which never rebuild an image, per
// spec.md §4.5.
func (e *Engine) Start(ctx context.Context, containerID string) error {
	if err := e.sdk.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %q: %w", containerID, err)
	}
	return nil
}

// RestartContainer asks the daemon to stop then start a running container
// in place, with a 10-second stop timeout, per spec.md §4.5's restart
// semantics.
func (e *Engine) RestartContainer(ctx context.Context, containerID string) error {
	stopTimeout := 10
	if err := e.sdk.ContainerRestart(ctx, containerID, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		return fmt.Errorf("failed to restart container %q: %w", containerID, err)
	}
	return nil
}

func (e *Engine) findContainerByName(ctx context.Context, containerName string) (string, error) {
	containers, err := e.sdk.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return "", fmt.Errorf("failed to list containers looking for %q: %w", containerName, err)
	}

	target := "/" + containerName
	for _, c := range containers {
		for _, name := range c.Names {
			if name == target {
				return c.ID, nil
			}
		}
	}
	return "", nil
}
