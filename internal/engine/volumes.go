package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/volume"
)

// EnsureVolume creates a named Docker volume if it does not already exist,
// idempotent by design since a redeploy may call this repeatedly for the
// same persistentStorage-enabled deployment.
func (e *Engine) EnsureVolume(ctx context.Context, name string) error {
	_, err := e.sdk.VolumeInspect(ctx, name)
	if err == nil {
		return nil
	}

	_, err = e.sdk.VolumeCreate(ctx, volume.CreateOptions{Name: name})
	if err != nil {
		return fmt.Errorf("failed to create volume %q: %w", name, err)
	}
	e.logger.Info().Str("volume", name).Msg("volume created")
	return nil
}

// RemoveVolume deletes a named volume, tolerating the already-gone case.
func (e *Engine) RemoveVolume(ctx context.Context, name string) error {
	if err := e.sdk.VolumeRemove(ctx, name, true); err != nil {
		e.logger.Warn().Err(err).Str("volume", name).Msg("failed to remove volume (non-fatal)")
		return nil
	}
	return nil
}

// ListContainersByLabel lists every container carrying the given label
// key=value pair, used by the executor during reconciliation sweeps.
func (e *Engine) ListContainersByLabel(ctx context.Context, labelKey, labelValue string) ([]string, error) {
	args := filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", labelKey, labelValue)))
	containers, err := e.sdk.ContainerList(ctx, containerListAllOptions(args))
	if err != nil {
		return nil, fmt.Errorf("failed to list containers by label %s=%s: %w", labelKey, labelValue, err)
	}

	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
