package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvus-paas/control-plane/internal/models"
)

func TestSelectRollbackTarget_NilTargetSkipsCurrentVersion(t *testing.T) {
	// After v1 -> v2, ListVersions returns both rows ([v2, v1]) since
	// recordVersion writes the active version's own row too. A nil-target
	// rollback from v2 must land on v1, not v2 itself.
	versions := []*models.DeploymentVersion{
		{Version: 2, ContainerID: "container-v2"},
		{Version: 1, ContainerID: "container-v1"},
	}

	got, err := selectRollbackTarget(versions, 2, nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "container-v1", got.ContainerID)
}

func TestSelectRollbackTarget_NilTargetPicksHighestPriorVersion(t *testing.T) {
	versions := []*models.DeploymentVersion{
		{Version: 3, ContainerID: "container-v3"},
		{Version: 2, ContainerID: "container-v2"},
		{Version: 1, ContainerID: "container-v1"},
	}

	got, err := selectRollbackTarget(versions, 3, nil)

	assert.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestSelectRollbackTarget_NilTargetErrorsWithNoPriorVersion(t *testing.T) {
	versions := []*models.DeploymentVersion{
		{Version: 1, ContainerID: "container-v1"},
	}

	_, err := selectRollbackTarget(versions, 1, nil)

	assert.Error(t, err)
}

func TestSelectRollbackTarget_ExplicitTargetFound(t *testing.T) {
	versions := []*models.DeploymentVersion{
		{Version: 3, ContainerID: "container-v3"},
		{Version: 2, ContainerID: "container-v2"},
		{Version: 1, ContainerID: "container-v1"},
	}
	target := 1

	got, err := selectRollbackTarget(versions, 3, &target)

	assert.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "container-v1", got.ContainerID)
}

func TestSelectRollbackTarget_ExplicitTargetNotFound(t *testing.T) {
	versions := []*models.DeploymentVersion{
		{Version: 1, ContainerID: "container-v1"},
	}
	target := 99

	_, err := selectRollbackTarget(versions, 1, &target)

	assert.Error(t, err)
}
