package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvus-paas/control-plane/internal/models"
)

func TestImageTag(t *testing.T) {
	assert.Equal(t, "corvus-deploy-abc123:latest", imageTag("abc123"))
}

func TestContainerName_IsPerVersion(t *testing.T) {
	assert.Equal(t, "deploy-abc123-v1", containerName("abc123", 1))
	assert.Equal(t, "deploy-abc123-v2", containerName("abc123", 2))
}

func TestMergeEnv_UserEnvWinsOverRecipeEnv(t *testing.T) {
	recipeEnv := map[string]string{"PORT": "8080", "NODE_ENV": "production"}
	userEnv := []models.EnvVar{
		{Key: "PORT", Value: "9090"},
		{Key: "API_KEY", Value: "secret"},
	}

	out := mergeEnv(recipeEnv, userEnv)

	asSet := make(map[string]bool, len(out))
	for _, kv := range out {
		asSet[kv] = true
	}

	assert.True(t, asSet["PORT=9090"], "user-supplied PORT should win over the recipe's own PORT")
	assert.False(t, asSet["PORT=8080"])
	assert.True(t, asSet["API_KEY=secret"])
	assert.True(t, asSet["NODE_ENV=production"])
	assert.Len(t, out, 3)
}

func TestMergeEnv_EmptyInputs(t *testing.T) {
	out := mergeEnv(nil, nil)
	assert.Empty(t, out)
}

func TestSlugFor_UsesProjectName(t *testing.T) {
	d := &models.Deployment{ProjectName: "my-cool-app"}
	assert.Equal(t, "my-cool-app", slugFor(d))
}
