package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// Logs returns the last `tail` lines of a container's stdout/stderr,
// demultiplexed into plain text. tail <= 0 means "all available lines".
func (e *Engine) Logs(ctx context.Context, containerID string, tail int) (string, error) {
	tailArg := "all"
	if tail > 0 {
		tailArg = strconv.Itoa(tail)
	}

	reader, err := e.sdk.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tailArg,
	})
	if err != nil {
		return "", fmt.Errorf("failed to read logs for container %q: %w", containerID, err)
	}
	defer reader.Close()

	var out strings.Builder
	if _, err := stdcopy.StdCopy(&out, &out, reader); err != nil {
		return "", fmt.Errorf("failed to demultiplex logs for container %q: %w", containerID, err)
	}
	return out.String(), nil
}
