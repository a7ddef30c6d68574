package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corvus-paas/control-plane/internal/models"
)

// dockerStatsSnapshot is the subset of the Docker daemon's one-shot stats
// JSON this driver reads. Field names mirror the daemon's wire format.
type dockerStatsSnapshot struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
	} `json:"cpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
	} `json:"memory_stats"`
	Networks map[string]struct {
		RxBytes uint64 `json:"rx_bytes"`
		TxBytes uint64 `json:"tx_bytes"`
	} `json:"networks"`
}

// Stats takes a single non-streaming stats snapshot and derives the metric
// sample fields per the documented formulas: cpu_percent is the raw
// total_usage/system_cpu_usage ratio (not the delta-based formula `docker
// stats` uses, since this is a one-shot read, not a running stream), and
// memory_mb is usage shifted down by 2^20. Network figures come from the
// first interface reported, which is "eth0" on every container this driver
// creates (single network attachment).
func (e *Engine) Stats(ctx context.Context, containerID string) (models.MetricSample, error) {
	resp, err := e.sdk.ContainerStatsOneShot(ctx, containerID)
	if err != nil {
		return models.MetricSample{}, fmt.Errorf("failed to read stats for container %q: %w", containerID, err)
	}
	defer resp.Body.Close()

	var snapshot dockerStatsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return models.MetricSample{}, fmt.Errorf("failed to decode stats for container %q: %w", containerID, err)
	}

	var cpuPercent float64
	if snapshot.CPUStats.SystemCPUUsage > 0 {
		cpuPercent = float64(snapshot.CPUStats.CPUUsage.TotalUsage) / float64(snapshot.CPUStats.SystemCPUUsage) * 100
	}

	memoryMB := float64(snapshot.MemoryStats.Usage) / (1 << 20)

	var rxMB, txMB float64
	for _, iface := range snapshot.Networks {
		rxMB = float64(iface.RxBytes) / (1 << 20)
		txMB = float64(iface.TxBytes) / (1 << 20)
		break
	}

	return models.MetricSample{
		Timestamp:  time.Now(),
		CPUPercent: cpuPercent,
		MemoryMB:   memoryMB,
		NetRxMB:    rxMB,
		NetTxMB:    txMB,
	}, nil
}
