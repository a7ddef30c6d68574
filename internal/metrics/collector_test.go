package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()

	assert.NotNil(t, c)
	assert.NotNil(t, c.Registry())
	assert.NotNil(t, c.uptimeSeconds)
	assert.NotNil(t, c.deploymentsActive)
	assert.NotNil(t, c.buildsTotal)
	assert.NotNil(t, c.deploymentsTotal)
}

func TestCollector_SetDeploymentsActive(t *testing.T) {
	c := NewCollector()

	assert.Equal(t, float64(0), testutil.ToFloat64(c.deploymentsActive))

	c.SetDeploymentsActive(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(c.deploymentsActive))

	c.SetDeploymentsActive(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.deploymentsActive))
}

func TestCollector_QueueAndClaimedGauges(t *testing.T) {
	c := NewCollector()

	c.SetQueueDepth(7)
	c.SetJobsClaimed(2)

	assert.Equal(t, float64(7), testutil.ToFloat64(c.queueDepth))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.jobsClaimed))
}

func TestCollector_IncBuildByOutcome(t *testing.T) {
	c := NewCollector()

	c.IncBuild("success")
	c.IncBuild("success")
	c.IncBuild("failed")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.buildsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.buildsTotal.WithLabelValues("failed")))
}

func TestCollector_IncDeploymentByType(t *testing.T) {
	c := NewCollector()

	c.IncDeployment("static")
	c.IncDeployment("service")
	c.IncDeployment("service")

	assert.Equal(t, float64(1), testutil.ToFloat64(c.deploymentsTotal.WithLabelValues("static")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.deploymentsTotal.WithLabelValues("service")))
}

func TestCollector_RollbackAndJanitorCounters(t *testing.T) {
	c := NewCollector()

	c.IncRollback()
	c.IncRollback()
	c.IncJanitorRequeue()

	assert.Equal(t, float64(2), testutil.ToFloat64(c.rollbacksTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.janitorRequeues))
}

func TestCollector_ObserveBuildDuration(t *testing.T) {
	c := NewCollector()

	c.ObserveBuildDuration(30 * time.Second)

	gathered, err := c.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range gathered {
		if mf.GetName() == "corvus_build_duration_seconds" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "expected corvus_build_duration_seconds in gathered metrics")
}

func TestCollector_RegistryIsolation(t *testing.T) {
	c1 := NewCollector()
	c2 := NewCollector()

	assert.NotSame(t, c1.Registry(), c2.Registry())

	c1.SetDeploymentsActive(5)
	c2.SetDeploymentsActive(9)

	assert.Equal(t, float64(5), testutil.ToFloat64(c1.deploymentsActive))
	assert.Equal(t, float64(9), testutil.ToFloat64(c2.deploymentsActive))
}
