package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvus-paas/control-plane/internal/models"
)

func TestSynthesize_StaticCarriesPublishDirIntoRescueScript(t *testing.T) {
	det := models.DetectionResult{
		Type: models.TypeStatic, Runtime: models.RuntimeNode, Framework: "vite",
		Config: models.Config{BuildCommand: "npm install && npm run build", PublishDir: "dist"},
	}
	r := Synthesize(det, models.Config{}, "dep-123")

	assert.Equal(t, nginxStaticImage, r.BaseImage)
	assert.Equal(t, 80, r.Port)
	assert.Equal(t, "static", r.Labels["type"])
	assert.Equal(t, "dep-123", r.Labels[models.ContainerLabelDeploymentID])
	assert.Contains(t, r.AuxFiles[1].Content, `"dist/index.html"`)
}

func TestSynthesize_RewritesNpmInstallForLegacyPeerDeps(t *testing.T) {
	det := models.DetectionResult{
		Type: models.TypeStatic, Runtime: models.RuntimeNode, Framework: "react",
		Config: models.Config{BuildCommand: "npm install && npm run build"},
	}
	r := Synthesize(det, models.Config{}, "dep-1")

	assert.Equal(t, []string{"npm install --legacy-peer-deps", "npm run build"}, r.BuildSteps)
}

func TestSynthesize_NpmInstallNotRewrittenWhenAlreadyExplicit(t *testing.T) {
	det := models.DetectionResult{
		Type: models.TypeStatic, Runtime: models.RuntimeNode,
		Config: models.Config{BuildCommand: "npm install --force"},
	}
	r := Synthesize(det, models.Config{}, "dep-1")
	assert.Equal(t, []string{"npm install --force"}, r.BuildSteps)
}

func TestSynthesize_UserConfigOverridesDetectedPort(t *testing.T) {
	det := models.DetectionResult{
		Type: models.TypeService, Runtime: models.RuntimeNode,
		Config: models.Config{Port: 3000, StartCommand: "npm start"},
	}
	r := Synthesize(det, models.Config{Port: 8888}, "dep-1")
	assert.Equal(t, 8888, r.Port)
}

func TestSynthesize_AutoRestartSetsRestartPolicy(t *testing.T) {
	det := models.DetectionResult{Type: models.TypeStatic, Runtime: models.RuntimeStatic}

	withRestart := Synthesize(det, models.Config{AutoRestart: true}, "dep-1")
	assert.Equal(t, "unless-stopped", withRestart.RestartPolicy)

	withoutRestart := Synthesize(det, models.Config{}, "dep-1")
	assert.Equal(t, "no", withoutRestart.RestartPolicy)
}

func TestSynthesize_PersistentStorageAddsVolume(t *testing.T) {
	det := models.DetectionResult{Type: models.TypeService, Runtime: models.RuntimePython}

	r := Synthesize(det, models.Config{PersistentStorage: true}, "dep-42")
	assert.Len(t, r.Volumes, 1)
	assert.Equal(t, "persistent_data_dep-42", r.Volumes[0].Name)
	assert.Equal(t, "/app/data", r.Volumes[0].MountPath)
}

func TestSynthesize_PersistentStorageHonorsUserVolumeName(t *testing.T) {
	det := models.DetectionResult{Type: models.TypeService, Runtime: models.RuntimePython}

	r := Synthesize(det, models.Config{PersistentStorage: true, VolumeName: "custom-vol"}, "dep-42")
	assert.Equal(t, "custom-vol", r.Volumes[0].Name)
}

func TestSynthesize_PythonRecipeUsesServiceLabel(t *testing.T) {
	det := models.DetectionResult{
		Type: models.TypeService, Runtime: models.RuntimePython, Framework: "flask",
		Config: models.Config{Port: 5000, StartCommand: "python -m flask run --host=0.0.0.0 --port=5000"},
	}
	r := Synthesize(det, models.Config{}, "dep-1")
	assert.Equal(t, "web-service", r.Labels["type"])
	assert.Equal(t, "python", r.Labels["runtime"])
}

func TestSynthesize_JavaRecipe(t *testing.T) {
	det := models.DetectionResult{
		Type: models.TypeService, Runtime: models.RuntimeJava, Framework: "maven",
		Config: models.Config{Port: 8080},
	}
	r := Synthesize(det, models.Config{}, "dep-1")
	assert.Equal(t, 8080, r.Port)
	assert.Equal(t, "java", r.Labels["runtime"])
}
