// Package metrics exposes the control plane's own operational health via
// Prometheus (builds run, deployment state transitions, queue depth,
// container counts) — distinct from models.MetricSample, which is
// per-deployment domain data served through the Control API instead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns one Prometheus registry for the whole process. The control
// plane creates one and serves it on the /metrics side listener; the worker
// binary creates none and exposes no metrics.
type Collector struct {
	registry  *prometheus.Registry
	startTime time.Time

	uptimeSeconds     prometheus.Gauge
	deploymentsActive prometheus.Gauge
	queueDepth        prometheus.Gauge
	jobsClaimed       prometheus.Gauge

	buildsTotal       *prometheus.CounterVec
	deploymentsTotal  *prometheus.CounterVec
	rollbacksTotal    prometheus.Counter
	janitorRequeues   prometheus.Counter

	buildDuration prometheus.Histogram
}

// NewCollector builds and registers every metric. Call once per process.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	uptimeSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "corvus_uptime_seconds",
		Help: "Seconds since this process started",
	})
	deploymentsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "corvus_deployments_active",
		Help: "Current number of deployments in the active state",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "corvus_queue_depth",
		Help: "Number of jobs currently waiting in the main queue",
	})
	jobsClaimed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "corvus_jobs_claimed",
		Help: "Number of jobs currently claimed by a worker and in flight",
	})

	buildsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corvus_builds_total",
		Help: "Total number of image builds, by outcome",
	}, []string{"outcome"})
	deploymentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corvus_deployments_total",
		Help: "Total number of deployment submissions, by deployment type",
	}, []string{"type"})
	rollbacksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "corvus_rollbacks_total",
		Help: "Total number of rollback operations performed",
	})
	janitorRequeues := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "corvus_janitor_requeues_total",
		Help: "Total number of jobs the queue janitor requeued after a stale claim",
	})

	buildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "corvus_build_duration_seconds",
		Help:    "Duration of image build operations",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to 2048s (~34min)
	})

	registry.MustRegister(
		uptimeSeconds,
		deploymentsActive,
		queueDepth,
		jobsClaimed,
		buildsTotal,
		deploymentsTotal,
		rollbacksTotal,
		janitorRequeues,
		buildDuration,
	)

	c := &Collector{
		registry:          registry,
		startTime:         time.Now(),
		uptimeSeconds:     uptimeSeconds,
		deploymentsActive: deploymentsActive,
		queueDepth:        queueDepth,
		jobsClaimed:       jobsClaimed,
		buildsTotal:       buildsTotal,
		deploymentsTotal:  deploymentsTotal,
		rollbacksTotal:    rollbacksTotal,
		janitorRequeues:   janitorRequeues,
		buildDuration:     buildDuration,
	}

	go c.trackUptime()
	return c
}

func (c *Collector) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		c.uptimeSeconds.Set(time.Since(c.startTime).Seconds())
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) SetDeploymentsActive(n int)   { c.deploymentsActive.Set(float64(n)) }
func (c *Collector) SetQueueDepth(n int64)        { c.queueDepth.Set(float64(n)) }
func (c *Collector) SetJobsClaimed(n int64)       { c.jobsClaimed.Set(float64(n)) }
func (c *Collector) ObserveBuildDuration(d time.Duration) { c.buildDuration.Observe(d.Seconds()) }
func (c *Collector) IncRollback()                 { c.rollbacksTotal.Inc() }
func (c *Collector) IncJanitorRequeue()            { c.janitorRequeues.Inc() }

func (c *Collector) IncBuild(outcome string) {
	c.buildsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncDeployment(deploymentType string) {
	c.deploymentsTotal.WithLabelValues(deploymentType).Inc()
}
