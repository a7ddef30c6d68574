// Package recipe implements the Recipe Synthesizer: a pure function from
// (DetectionResult, UserConfig, RuntimeKind) to an in-memory container image
// recipe. Nothing here touches the filesystem or a container engine —
// synthesize(det, cfg) must stay a pure function of its inputs (the
// recipe-determinism law in the testable properties).
package recipe

import (
	"fmt"
	"strings"

	"github.com/corvus-paas/control-plane/internal/models"
)

// AuxFile is a supporting file the synthesizer wants placed in the build
// context before the Container Engine Driver builds it (e.g. an nginx
// config for static sites, a generated Django settings_local.py).
type AuxFile struct {
	Path    string // relative to the build context root
	Content string
}

// Healthcheck describes the runtime healthcheck a recipe declares. The
// engine driver does not read it; no Docker healthcheck is set from it.
type Healthcheck struct {
	// Kind is "http" (probes HTTPPath on the recipe's Port) or "tcp" (probes
	// the recipe's Port).
	Kind     string
	HTTPPath string
	Interval string
}

// Recipe is the complete output of Synthesize: enough information for the
// Container Engine Driver to build an image and run a container from it,
// with no further domain knowledge required.
type Recipe struct {
	// BaseImage is the runtime-stage base image tag.
	BaseImage string
	// BuildSteps are shell commands run during the image build, each one a
	// single step (the synthesizer splits a user buildCommand on && into one
	// step per segment, per spec.md §4.2).
	BuildSteps []string
	// Command is the container's runtime entrypoint, run through `sh -c`.
	Command string
	// Port is the in-container listening port.
	Port int
	// Healthcheck is the probe this recipe declares.
	Healthcheck Healthcheck
	// AuxFiles are additional files to materialize in the build context.
	AuxFiles []AuxFile
	// BuildIgnore is the advisory .dockerignore-equivalent manifest written
	// next to the build context (see SPEC_FULL.md §4.2 expansion).
	BuildIgnore []string
	// Env are build-time/run-time environment variables the synthesizer
	// itself introduces (distinct from the user's EnvironmentVariables,
	// which the executor merges in separately).
	Env map[string]string
	// Volumes are named-volume mount points the recipe requires.
	Volumes []VolumeMount
	// Labels are the labels every container from this recipe must carry.
	Labels map[string]string
	// RestartPolicy is "unless-stopped" when autoRestart is set, "no" otherwise.
	RestartPolicy string
	// A Recipe carries no resource caps: the Container Engine Driver applies
	// its configured defaults (CONTAINER_MEMORY_LIMIT/CONTAINER_CPU_LIMIT).
}

// VolumeMount is a named persistent volume mounted at a container path.
type VolumeMount struct {
	Name      string
	MountPath string
}

// Synthesize is the Recipe Synthesizer's single entry point. det is the
// Project Detector's output; cfg is the user-supplied config overriding
// det.Config; deploymentID labels the resulting containers.
func Synthesize(det models.DetectionResult, cfg models.Config, deploymentID string) Recipe {
	merged := mergeConfig(det.Config, cfg)

	var recipe Recipe
	switch {
	case det.Type == models.TypeStatic:
		recipe = synthesizeStatic(det, merged)
	case merged.Runtime == models.RuntimePython || det.Runtime == models.RuntimePython:
		recipe = synthesizePython(det, merged)
	case merged.Runtime == models.RuntimeNode || det.Runtime == models.RuntimeNode:
		recipe = synthesizeNode(det, merged)
	case merged.Runtime == models.RuntimeJava || det.Runtime == models.RuntimeJava:
		recipe = synthesizeJava(det, merged)
	default:
		recipe = synthesizeStatic(det, merged)
	}

	if recipe.Labels == nil {
		recipe.Labels = map[string]string{}
	}
	recipe.Labels["app"] = "deployment-platform"
	recipe.Labels["runtime"] = string(det.Runtime)
	recipe.Labels[models.ContainerLabelDeploymentID] = deploymentID
	if recipe.Labels["type"] == "" {
		if det.Type == models.TypeStatic {
			recipe.Labels["type"] = "static"
		} else if merged.UseDevMode {
			recipe.Labels["type"] = "web-service-dev"
		} else {
			recipe.Labels["type"] = "web-service"
		}
	}

	if merged.AutoRestart {
		recipe.RestartPolicy = "unless-stopped"
	} else {
		recipe.RestartPolicy = "no"
	}

	if merged.PersistentStorage {
		volumeName := merged.VolumeName
		if volumeName == "" {
			volumeName = "persistent_data_" + deploymentID
		}
		recipe.Volumes = append(recipe.Volumes, VolumeMount{Name: volumeName, MountPath: "/app/data"})
	}

	return recipe
}

// mergeConfig layers the user-supplied cfg over the detector's defaults;
// any field the user set (non-zero) wins.
func mergeConfig(detected, user models.Config) models.Config {
	merged := detected
	if user.Runtime != "" {
		merged.Runtime = user.Runtime
	}
	if user.EntryFile != "" {
		merged.EntryFile = user.EntryFile
	}
	if user.Port != 0 {
		merged.Port = user.Port
	}
	if user.BuildCommand != "" {
		merged.BuildCommand = user.BuildCommand
	}
	if user.StartCommand != "" {
		merged.StartCommand = user.StartCommand
	}
	if user.PublishDir != "" {
		merged.PublishDir = user.PublishDir
	}
	merged.UseDevMode = user.UseDevMode || detected.UseDevMode
	merged.PersistentStorage = user.PersistentStorage || detected.PersistentStorage
	if user.VolumeName != "" {
		merged.VolumeName = user.VolumeName
	}
	if user.HealthCheckPath != "" {
		merged.HealthCheckPath = user.HealthCheckPath
	}
	merged.AutoRestart = user.AutoRestart || detected.AutoRestart
	return merged
}

// rewriteBuildCommand applies the synthesizer's npm-install rewrite rule:
// `npm install` becomes `npm install --legacy-peer-deps` unless the user
// already asked for --legacy-peer-deps or --force, and splits on && into
// one build step per segment.
func rewriteBuildCommand(buildCommand string) []string {
	if buildCommand == "" {
		return nil
	}

	segments := strings.Split(buildCommand, "&&")
	steps := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if strings.HasPrefix(segment, "npm install") &&
			!strings.Contains(segment, "--legacy-peer-deps") &&
			!strings.Contains(segment, "--force") {
			segment = segment + " --legacy-peer-deps"
		}
		steps = append(steps, segment)
	}
	return steps
}

func healthCheckPathOrDefault(cfg models.Config) string {
	if cfg.HealthCheckPath != "" {
		return cfg.HealthCheckPath
	}
	return "/"
}

func fmtEnvLine(key, value string) string {
	return fmt.Sprintf("%s=%s", key, value)
}
