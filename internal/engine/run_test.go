package engine

import (
	"testing"

	"github.com/docker/docker/api/types/mount"
	"github.com/stretchr/testify/assert"

	"github.com/corvus-paas/control-plane/internal/recipe"
)

func TestRunMounts_BuildsVolumeMountsFromRecipe(t *testing.T) {
	mounts := runMounts([]recipe.VolumeMount{
		{Name: "data", MountPath: "/app/data"},
	})

	require := assert.New(t)
	require.Len(mounts, 1)
	require.Equal(mount.TypeVolume, mounts[0].Type)
	require.Equal("data", mounts[0].Source)
	require.Equal("/app/data", mounts[0].Target)
}

func TestRunMounts_EmptyWhenNoVolumes(t *testing.T) {
	mounts := runMounts(nil)
	assert.Empty(t, mounts)
}

func TestMergeLabels_OverridesWinOverBase(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	overrides := map[string]string{"b": "3", "c": "4"}

	merged := mergeLabels(base, overrides)

	assert.Equal(t, "1", merged["a"])
	assert.Equal(t, "3", merged["b"])
	assert.Equal(t, "4", merged["c"])
}

func TestRestartPolicyOrDefault(t *testing.T) {
	assert.Equal(t, "no", restartPolicyOrDefault(""))
	assert.Equal(t, "unless-stopped", restartPolicyOrDefault("unless-stopped"))
}

func TestShortID_TruncatesTo12Chars(t *testing.T) {
	assert.Equal(t, "abcdefabcdef", shortID("abcdefabcdef1234567890"))
	assert.Equal(t, "short", shortID("short"))
}

func TestTraefikLabelsFor_EmptyWhenNoSlug(t *testing.T) {
	labels := traefikLabelsFor("", 3000)
	assert.Empty(t, labels)
}

func TestTraefikLabelsFor_BuildsRoutingLabels(t *testing.T) {
	labels := traefikLabelsFor("happy-otter-1a2b", 3000)

	assert.Equal(t, "true", labels["traefik.enable"])
	assert.Equal(t, "Host(`happy-otter-1a2b.localhost`)", labels["traefik.http.routers.happy-otter-1a2b.rule"])
	assert.Equal(t, "3000", labels["traefik.http.services.happy-otter-1a2b.loadbalancer.server.port"])
}
