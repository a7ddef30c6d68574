package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/corvus-paas/control-plane/internal/recipe"
)

// RunSpec is everything the Container Engine Driver needs to create and
// start a container from a previously built image.
type RunSpec struct {
	ContainerName  string
	Image          string
	ContainerPort  int
	Env            []string // KEY=VALUE, user vars merged ahead of recipe vars by the caller
	Volumes        []recipe.VolumeMount
	Labels         map[string]string
	RestartPolicy  string
	MemoryLimit    string
	CPUQuota       float64
	TraefikNetwork string
	Slug           string
}

// Run creates and starts a container per the immutable-infrastructure
// pattern: any previous container carrying the same name is destroyed first,
// then a fresh one is created and started. The host port Docker assigns for
// ContainerPort is returned so the caller can persist it as host_port.
func (e *Engine) Run(ctx context.Context, spec RunSpec) (containerID string, hostPort int, err error) {
	if err := e.StopAndRemove(ctx, spec.ContainerName); err != nil {
		return "", 0, fmt.Errorf("failed to clear previous container %q: %w", spec.ContainerName, err)
	}

	labels := mergeLabels(traefikLabelsFor(spec.Slug, spec.ContainerPort), spec.Labels)

	containerPort, err := exposedPort(spec.ContainerPort)
	if err != nil {
		return "", 0, err
	}

	containerInternalConfig := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Labels:       labels,
		ExposedPorts: exposedPortSet(containerPort),
	}

	memBytes, err := parseMemoryLimit(spec.MemoryLimit)
	if err != nil {
		return "", 0, fmt.Errorf("invalid memory limit %q: %w", spec.MemoryLimit, err)
	}

	containerHostConfig := &container.HostConfig{
		Mounts:        runMounts(spec.Volumes),
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(restartPolicyOrDefault(spec.RestartPolicy))},
		PortBindings:  publishedPortMap(containerPort),
		Resources: container.Resources{
			Memory:   memBytes,
			NanoCPUs: int64(spec.CPUQuota * 1e9),
		},
	}

	var networkingConfig *network.NetworkingConfig
	if spec.TraefikNetwork != "" {
		networkingConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.TraefikNetwork: {},
			},
		}
	}

	var platform *v1.Platform
	createResponse, err := e.sdk.ContainerCreate(
		ctx,
		containerInternalConfig,
		containerHostConfig,
		networkingConfig,
		platform,
		spec.ContainerName,
	)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create container %q: %w", spec.ContainerName, err)
	}

	e.logger.Info().Str("container_id", shortID(createResponse.ID)).Str("name", spec.ContainerName).Msg("container created")

	if err := e.sdk.ContainerStart(ctx, createResponse.ID, container.StartOptions{}); err != nil {
		return "", 0, fmt.Errorf("failed to start container %q: %w", spec.ContainerName, err)
	}

	hostPort, err = e.resolvePublishedPort(ctx, createResponse.ID, containerPort)
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve published port for %q: %w", spec.ContainerName, err)
	}

	e.logger.Info().Str("container_id", shortID(createResponse.ID)).Int("host_port", hostPort).Msg("container started")
	return createResponse.ID, hostPort, nil
}

func runMounts(volumes []recipe.VolumeMount) []mount.Mount {
	mounts := make([]mount.Mount, 0, len(volumes))
	for _, v := range volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: v.Name,
			Target: v.MountPath,
		})
	}
	return mounts
}

func mergeLabels(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func restartPolicyOrDefault(policy string) string {
	if policy == "" {
		return "no"
	}
	return policy
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// traefikLabelsFor returns the Docker labels that instruct Traefik to route
// <slug>.localhost to this container's in-container port. The host suffix is
// fixed at "localhost"; the configured base domain is not used here.
func traefikLabelsFor(slug string, containerPort int) map[string]string {
	if slug == "" {
		return map[string]string{}
	}
	return map[string]string{
		"traefik.enable":                         "true",
		"traefik.http.routers." + slug + ".rule": "Host(`" + slug + ".localhost`)",
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", slug): fmt.Sprintf("%d", containerPort),
	}
}
