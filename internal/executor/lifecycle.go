package executor

import (
	"context"
	"fmt"

	"github.com/corvus-paas/control-plane/internal/models"
)

// Restart does a simple in-place restart of the deployment's current
// container, with a 10-second stop timeout — no rebuild, no recreate, per
// spec.md §4.5.
func (ex *Executor) Restart(ctx context.Context, deploymentID string) error {
	d, err := ex.st.GetDeployment(ctx, deploymentID)
	if err != nil {
		return err
	}
	if d.ContainerID == nil {
		return fmt.Errorf("deployment %q has no running container to restart", deploymentID)
	}

	if err := ex.eng.RestartContainer(ctx, *d.ContainerID); err != nil {
		return fmt.Errorf("failed to restart container: %w", err)
	}

	hostPort, err := ex.eng.PrimaryPublishedPort(ctx, *d.ContainerID)
	if err != nil {
		return fmt.Errorf("failed to resolve restarted container's port: %w", err)
	}

	d.HostPort = &hostPort
	d.DirectURL = fmt.Sprintf("http://%s:%d", ex.opts.PublicIP, hostPort)
	d.Status = models.StatusActive
	return ex.st.UpsertDeployment(ctx, d)
}

// UpdateEnvironmentVariables replaces environment_variables on the record
// and restarts the container in place. A restart does not re-create the
// container, so the running container keeps the environment it was created
// with; the new values take effect on the next build.
func (ex *Executor) UpdateEnvironmentVariables(ctx context.Context, deploymentID string, env []models.EnvVar) error {
	d, err := ex.st.GetDeployment(ctx, deploymentID)
	if err != nil {
		return err
	}
	d.EnvironmentVariables = env
	if err := ex.st.UpsertDeployment(ctx, d); err != nil {
		return err
	}
	return ex.Restart(ctx, deploymentID)
}

// Rollback stops the currently active container and starts the target
// version's already-built container by id (no rebuild), then swaps
// container_id, config, version, and timestamp on the record. If target is
// nil, the most recent prior version is used. If starting the old container
// fails (e.g. its image was pruned), rollback returns an error and leaves
// the deployment in whatever state the engine reports — no
// revert-on-failure wrapper is applied here (see design notes), since one
// would contradict rollback's own "no rebuild occurs" invariant.
func (ex *Executor) Rollback(ctx context.Context, deploymentID string, target *int) error {
	d, err := ex.st.GetDeployment(ctx, deploymentID)
	if err != nil {
		return err
	}

	versions, err := ex.st.ListVersions(ctx, deploymentID)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("deployment %q has no prior versions to roll back to", deploymentID)
	}

	targetVersion, err := selectRollbackTarget(versions, d.Version, target)
	if err != nil {
		return fmt.Errorf("deployment %q: %w", deploymentID, err)
	}

	if d.ContainerID != nil {
		if err := ex.eng.Stop(ctx, *d.ContainerID); err != nil {
			ex.logger.Warn().Err(err).Str("container", *d.ContainerID).Msg("failed to stop current container before rollback")
		}
	}

	if err := ex.eng.Start(ctx, targetVersion.ContainerID); err != nil {
		return fmt.Errorf("failed to start target version %d's container: %w", targetVersion.Version, err)
	}

	hostPort, err := ex.eng.PrimaryPublishedPort(ctx, targetVersion.ContainerID)
	if err != nil {
		return fmt.Errorf("failed to resolve target version %d's port: %w", targetVersion.Version, err)
	}

	containerID := targetVersion.ContainerID
	d.ContainerID = &containerID
	d.HostPort = &hostPort
	d.DirectURL = fmt.Sprintf("http://%s:%d", ex.opts.PublicIP, hostPort)
	d.Config = targetVersion.ConfigSnapshot
	d.Version = targetVersion.Version
	d.Status = models.StatusActive
	return ex.st.UpsertDeployment(ctx, d)
}

// selectRollbackTarget picks the DeploymentVersion a nil-target Rollback
// should land on. ListVersions includes a row for the currently active
// version too — recordVersion writes it on every successful rollout, before
// it's superseded — so picking versions[0] (the highest version number
// overall) can select the deployment's own current version instead of a
// prior one. The correct target is the highest version strictly less than
// currentVersion.
func selectRollbackTarget(versions []*models.DeploymentVersion, currentVersion int, target *int) (*models.DeploymentVersion, error) {
	if target != nil {
		for _, v := range versions {
			if v.Version == *target {
				return v, nil
			}
		}
		return nil, fmt.Errorf("has no version %d", *target)
	}

	var best *models.DeploymentVersion
	for _, v := range versions {
		if v.Version < currentVersion && (best == nil || v.Version > best.Version) {
			best = v
		}
	}
	if best == nil {
		return nil, fmt.Errorf("has no prior version to roll back to")
	}
	return best, nil
}

// Delete stops the active container and every retained prior version's
// container, then removes the deployment record entirely.
func (ex *Executor) Delete(ctx context.Context, deploymentID string) error {
	if d, err := ex.st.GetDeployment(ctx, deploymentID); err == nil && d.ContainerID != nil {
		if err := ex.eng.Stop(ctx, *d.ContainerID); err != nil {
			ex.logger.Warn().Err(err).Str("container", *d.ContainerID).Msg("failed to stop active container during delete")
		}
	}

	versions, err := ex.st.ListVersions(ctx, deploymentID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := ex.eng.Stop(ctx, v.ContainerID); err != nil {
			ex.logger.Warn().Err(err).Str("container", v.ContainerID).Msg("failed to stop prior version container during delete")
		}
	}

	return ex.st.DeleteDeployment(ctx, deploymentID)
}
