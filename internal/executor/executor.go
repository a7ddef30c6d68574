// Package executor is the Deployment Executor: the worker-side
// orchestration that turns a claimed queue.Job into a running container,
// streaming progress through the Log Bus and persisting the outcome to the
// Deployment Store. It is the only writer of status transitions during a
// deployment, per spec.md §4.5.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/corvus-paas/control-plane/internal/detect"
	"github.com/corvus-paas/control-plane/internal/engine"
	"github.com/corvus-paas/control-plane/internal/logbus"
	"github.com/corvus-paas/control-plane/internal/models"
	"github.com/corvus-paas/control-plane/internal/queue"
	"github.com/corvus-paas/control-plane/internal/recipe"
	"github.com/corvus-paas/control-plane/internal/store"
)

// Options configures resource and networking defaults the executor applies
// to every container it runs, independent of what an individual recipe asks
// for.
type Options struct {
	TraefikNetwork     string
	BaseDomain         string
	DefaultMemoryLimit string
	DefaultCPUQuota    float64

	// PublicIP builds direct_url ({PublicIP}:{host_port}) per spec.md §4.5/§6,
	// since the executor — not the control plane — owns DirectURL.
	PublicIP string
}

// Executor wires together every Deployment Executor dependency: the
// Container Engine Driver, the Deployment Store, the Log Bus, and the
// queue it drains jobs from.
type Executor struct {
	eng    *engine.Engine
	st     store.Store
	bus    *logbus.Bus
	q      *queue.Queue
	logger zerolog.Logger
	opts   Options
}

// New constructs an Executor. One Executor runs per worker process.
func New(eng *engine.Engine, st store.Store, bus *logbus.Bus, q *queue.Queue, logger zerolog.Logger, opts Options) *Executor {
	return &Executor{eng: eng, st: st, bus: bus, q: q, logger: logger, opts: opts}
}

// Run pulls jobs from the queue until ctx is canceled, processing each one
// to completion before claiming the next. A single executor instance
// processes jobs serially; horizontal scale comes from running more worker
// processes, each with its own Executor and queue.Queue bound to the same
// Redis instance.
func (ex *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := ex.q.Claim(ctx)
		if err != nil {
			if err == queue.ErrNoJob {
				continue
			}
			ex.logger.Warn().Err(err).Msg("failed to claim job")
			continue
		}

		result := ex.processJob(ctx, job)
		if err := ex.q.Ack(ctx, job, result); err != nil {
			ex.logger.Error().Err(err).Str("deployment_id", job.DeploymentID).Msg("failed to ack job")
		}
	}
}

// processJob implements the queued -> building -> {active, failed} state
// machine from spec.md §4.5.
func (ex *Executor) processJob(ctx context.Context, job queue.Job) queue.JobResult {
	deploymentID := job.DeploymentID

	d, err := ex.st.GetDeployment(ctx, deploymentID)
	if err != nil {
		ex.logger.Error().Err(err).Str("deployment_id", deploymentID).Msg("failed to load deployment for job")
		return queue.JobResult{Success: false, Error: err.Error()}
	}

	d.Status = models.StatusBuilding
	if err := ex.st.UpsertDeployment(ctx, d); err != nil {
		ex.logger.Error().Err(err).Str("deployment_id", deploymentID).Msg("failed to mark deployment building")
	}
	ex.bus.Info(ctx, deploymentID, "starting build")

	det := detect.Detect(job.ProjectDir)
	ex.bus.Info(ctx, deploymentID, fmt.Sprintf("detected runtime=%s framework=%s", det.Runtime, det.Framework))

	r := recipe.Synthesize(det, job.Config, deploymentID)

	tag := imageTag(deploymentID)
	onLog := func(line engine.BuildLogLine) {
		if line.Stream != "" {
			ex.bus.Log(ctx, deploymentID, line.Stream)
		}
		if line.Error != "" {
			ex.bus.Error(ctx, deploymentID, line.Error)
		}
	}

	ex.eng.CheckHostMemory(ctx)

	imageID, err := ex.eng.Build(ctx, job.ProjectDir, tag, r, onLog)
	if err != nil {
		return ex.fail(ctx, d, "build failed", err)
	}
	ex.bus.Info(ctx, deploymentID, fmt.Sprintf("image built: %s", imageID))

	for _, vol := range r.Volumes {
		if err := ex.eng.EnsureVolume(ctx, vol.Name); err != nil {
			return ex.fail(ctx, d, "failed to ensure volume", err)
		}
	}

	nextVersion := d.Version + 1

	if d.ContainerID != nil {
		if err := ex.eng.Stop(ctx, *d.ContainerID); err != nil {
			ex.logger.Warn().Err(err).Str("container", *d.ContainerID).Msg("failed to stop previous version's container before cutover")
		}
	}

	containerID, hostPort, err := ex.eng.Run(ctx, engine.RunSpec{
		ContainerName:  containerName(deploymentID, nextVersion),
		Image:          tag,
		ContainerPort:  r.Port,
		Env:            mergeEnv(r.Env, d.EnvironmentVariables),
		Volumes:        r.Volumes,
		Labels:         r.Labels,
		RestartPolicy:  r.RestartPolicy,
		MemoryLimit:    ex.opts.DefaultMemoryLimit,
		CPUQuota:       ex.opts.DefaultCPUQuota,
		TraefikNetwork: ex.opts.TraefikNetwork,
		Slug:           slugFor(d),
	})
	if err != nil {
		return ex.fail(ctx, d, "run failed", err)
	}

	directURL := fmt.Sprintf("http://%s:%d", ex.opts.PublicIP, hostPort)
	publicURL := fmt.Sprintf("http://%s.%s", slugFor(d), ex.opts.BaseDomain)

	d.Status = models.StatusActive
	d.ContainerID = &containerID
	d.HostPort = &hostPort
	d.URL = publicURL
	d.DirectURL = directURL
	d.Version++
	if err := ex.st.UpsertDeployment(ctx, d); err != nil {
		return ex.fail(ctx, d, "failed to persist active deployment", err)
	}

	if err := ex.recordVersion(ctx, d, containerID); err != nil {
		ex.logger.Warn().Err(err).Str("deployment_id", deploymentID).Msg("failed to record version history")
	}

	ex.bus.Done(ctx, deploymentID, true, &logbus.DoneResult{
		ContainerID: containerID,
		Port:        hostPort,
		DirectURL:   directURL,
	})
	return queue.JobResult{Success: true}
}

func (ex *Executor) fail(ctx context.Context, d *models.Deployment, reason string, cause error) queue.JobResult {
	ex.bus.Error(ctx, d.ID, fmt.Sprintf("%s: %v", reason, cause))
	d.Status = models.StatusFailed
	if err := ex.st.UpsertDeployment(ctx, d); err != nil {
		ex.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("failed to persist failed status")
	}
	ex.bus.Done(ctx, d.ID, false, nil)
	return queue.JobResult{Success: false, Error: cause.Error()}
}

func (ex *Executor) recordVersion(ctx context.Context, d *models.Deployment, containerID string) error {
	v := &models.DeploymentVersion{
		DeploymentID:   d.ID,
		Version:        d.Version,
		ContainerID:    containerID,
		Timestamp:      time.Now().UTC(),
		ConfigSnapshot: d.Config,
		Status:         "previous",
	}
	if err := ex.st.AddVersion(ctx, v); err != nil {
		return err
	}

	pruned, err := ex.st.PruneVersions(ctx, d.ID, store.MaxRetainedVersions)
	if err != nil {
		return err
	}
	for _, old := range pruned {
		if err := ex.eng.Stop(ctx, old.ContainerID); err != nil {
			ex.logger.Warn().Err(err).Str("container", old.ContainerID).Msg("failed to stop evicted version's container")
		}
	}
	return nil
}

func imageTag(deploymentID string) string {
	return "corvus-deploy-" + deploymentID + ":latest"
}

// containerName is per-version, not per-deployment: each version's
// container is stopped (never removed) when superseded, so rollback can
// later start it again by id.
func containerName(deploymentID string, version int) string {
	return fmt.Sprintf("deploy-%s-v%d", deploymentID, version)
}

func slugFor(d *models.Deployment) string {
	return d.ProjectName
}

// mergeEnv layers user-supplied environment variables over the recipe's own
// build/runtime env, preserving the ordered-list semantics of
// EnvironmentVariables while deduping against recipe-introduced keys.
func mergeEnv(recipeEnv map[string]string, userEnv []models.EnvVar) []string {
	seen := make(map[string]bool, len(recipeEnv)+len(userEnv))
	out := make([]string, 0, len(recipeEnv)+len(userEnv))

	for _, kv := range userEnv {
		out = append(out, kv.Key+"="+kv.Value)
		seen[kv.Key] = true
	}
	for k, v := range recipeEnv {
		if seen[k] {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}
