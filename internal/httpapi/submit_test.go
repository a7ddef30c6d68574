package httpapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-paas/control-plane/internal/models"
)

func TestApplyConvenienceFields_CopiesTopLevelIntoConfig(t *testing.T) {
	req := submitRequest{PersistentStorage: true, HealthCheckPath: "/healthz", AutoRestart: true}
	req.applyConvenienceFields()

	assert.True(t, req.Config.PersistentStorage)
	assert.Equal(t, "/healthz", req.Config.HealthCheckPath)
	assert.True(t, req.Config.AutoRestart)
}

func TestApplyConvenienceFields_LeavesConfigAloneWhenUnset(t *testing.T) {
	req := submitRequest{}
	req.applyConvenienceFields()

	assert.False(t, req.Config.PersistentStorage)
	assert.Equal(t, "", req.Config.HealthCheckPath)
	assert.False(t, req.Config.AutoRestart)
}

func TestValidate_RequiresProjectName(t *testing.T) {
	req := submitRequest{DeploymentType: models.TypeStatic}
	err := req.validate(false)
	assert.Error(t, err)
}

func TestValidate_RequiresGithubRepoWhenRequired(t *testing.T) {
	req := submitRequest{ProjectName: "app", DeploymentType: models.TypeStatic}
	err := req.validate(true)
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownDeploymentType(t *testing.T) {
	req := submitRequest{ProjectName: "app", DeploymentType: "bogus"}
	err := req.validate(false)
	assert.Error(t, err)
}

func TestValidate_DefaultsBranchToMain(t *testing.T) {
	req := submitRequest{ProjectName: "app", DeploymentType: models.TypeService}
	require.NoError(t, req.validate(false))
	assert.Equal(t, "main", req.Branch)
}

func TestValidate_AcceptsWellFormedRequest(t *testing.T) {
	req := submitRequest{ProjectName: "app", GithubRepo: "org/repo", Branch: "main", DeploymentType: models.TypeService}
	assert.NoError(t, req.validate(true))
}

func TestNewDeploymentRecord_SetsQueuedStatusAndURL(t *testing.T) {
	req := submitRequest{ProjectName: "app", DeploymentType: models.TypeStatic}
	repo, branch := "org/repo", "main"

	d := newDeploymentRecord(req, models.SourceRemoteRepo, &repo, &branch, nil, "example.com")

	assert.Equal(t, models.StatusQueued, d.Status)
	assert.Contains(t, d.URL, ".example.com")
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, models.SourceRemoteRepo, d.Source)
}

func TestFlattenSingleTopLevelDir_MovesNestedContentsUp(t *testing.T) {
	destDir := t.TempDir()
	nested := filepath.Join(destDir, "repo-main")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "index.html"), []byte("hi"), 0644))

	require.NoError(t, flattenSingleTopLevelDir(destDir))

	_, err := os.Stat(filepath.Join(destDir, "index.html"))
	assert.NoError(t, err)
	_, err = os.Stat(nested)
	assert.True(t, os.IsNotExist(err))
}

func TestFlattenSingleTopLevelDir_NoOpWhenMultipleTopLevelEntries(t *testing.T) {
	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "b.txt"), []byte("b"), 0644))

	require.NoError(t, flattenSingleTopLevelDir(destDir))

	_, err := os.Stat(filepath.Join(destDir, "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(destDir, "b.txt"))
	assert.NoError(t, err)
}

func TestFlattenSingleTopLevelDir_NoOpWhenTopLevelIsAFile(t *testing.T) {
	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "single.txt"), []byte("x"), 0644))

	require.NoError(t, flattenSingleTopLevelDir(destDir))

	_, err := os.Stat(filepath.Join(destDir, "single.txt"))
	assert.NoError(t, err)
}
