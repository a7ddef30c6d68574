package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// exposedPort builds the TCP nat.Port for a container's in-process listening
// port, the form the Docker SDK's ExposedPorts/PortBindings maps key on.
func exposedPort(containerPort int) (nat.Port, error) {
	return nat.NewPort("tcp", strconv.Itoa(containerPort))
}

func exposedPortSet(port nat.Port) nat.PortSet {
	return nat.PortSet{port: struct{}{}}
}

// publishedPortMap requests an ephemeral host port from the Docker daemon
// (empty HostPort) rather than a fixed one, since many deployments run on
// the same host and cannot all claim a static port.
func publishedPortMap(port nat.Port) nat.PortMap {
	return nat.PortMap{
		port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}},
	}
}

// resolvePublishedPort inspects a just-started container and returns the
// host port the daemon assigned for containerPort.
func (e *Engine) resolvePublishedPort(ctx context.Context, containerID string, containerPort nat.Port) (int, error) {
	info, err := e.sdk.ContainerInspect(ctx, containerID)
	if err != nil {
		return 0, err
	}
	bindings, ok := info.NetworkSettings.Ports[containerPort]
	if !ok || len(bindings) == 0 {
		return 0, fmt.Errorf("no published host port found for container %s", shortID(containerID))
	}
	hostPort, err := strconv.Atoi(bindings[0].HostPort)
	if err != nil {
		return 0, fmt.Errorf("invalid published host port %q: %w", bindings[0].HostPort, err)
	}
	return hostPort, nil
}

// PrimaryPublishedPort inspects a container and returns whichever host port
// the daemon has bound, for the common case (every container this driver
// runs publishes exactly one port). Used by rollback/restart when the
// caller does not already know the container's in-process port.
func (e *Engine) PrimaryPublishedPort(ctx context.Context, containerID string) (int, error) {
	info, err := e.sdk.ContainerInspect(ctx, containerID)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect container %q: %w", containerID, err)
	}
	for _, bindings := range info.NetworkSettings.Ports {
		if len(bindings) == 0 {
			continue
		}
		hostPort, err := strconv.Atoi(bindings[0].HostPort)
		if err != nil {
			continue
		}
		return hostPort, nil
	}
	return 0, fmt.Errorf("no published port found for container %s", shortID(containerID))
}

// ResolveHostPort inspects a container and returns the host port the
// daemon has bound for its given in-container TCP port. Exported for
// rollback/restart, which reuse an already-created container's existing
// port bindings rather than publishing a new one.
func (e *Engine) ResolveHostPort(ctx context.Context, containerID string, containerPort int) (int, error) {
	port, err := exposedPort(containerPort)
	if err != nil {
		return 0, err
	}
	return e.resolvePublishedPort(ctx, containerID, port)
}

// parseMemoryLimit parses a human memory size ("512m", "1g", "" for
// unlimited) into bytes, matching the CONTAINER_MEMORY_LIMIT config knob.
func parseMemoryLimit(limit string) (int64, error) {
	if limit == "" {
		return 0, nil
	}
	limit = strings.TrimSpace(strings.ToLower(limit))
	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(limit, "g"):
		multiplier = 1 << 30
		limit = strings.TrimSuffix(limit, "g")
	case strings.HasSuffix(limit, "m"):
		multiplier = 1 << 20
		limit = strings.TrimSuffix(limit, "m")
	case strings.HasSuffix(limit, "k"):
		multiplier = 1 << 10
		limit = strings.TrimSuffix(limit, "k")
	}
	value, err := strconv.ParseInt(limit, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", limit, err)
	}
	return value * multiplier, nil
}
