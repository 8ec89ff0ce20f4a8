package aggregator

import (
	"sort"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

type serverAccumulator struct {
	cpuSum      float64
	memorySum   float64
	diskSum     float64
	rpsSum      float64
	failures    int64
	sampleCount int
}

// ComputeServerHealth groups metric samples by server and returns one
// summary per distinct server_id seen in the batch, including servers with
// a single sample. Output is sorted by server_id for determinism.
func ComputeServerHealth(samples []models.ServerMetricSample) []models.ServerHealthSummary {
	if len(samples) == 0 {
		return nil
	}

	byServer := make(map[string]*serverAccumulator)
	for _, s := range samples {
		acc, ok := byServer[s.ServerID]
		if !ok {
			acc = &serverAccumulator{}
			byServer[s.ServerID] = acc
		}
		acc.cpuSum += s.CPUUsagePercent
		acc.memorySum += s.MemoryUsagePercent
		acc.diskSum += s.DiskUsagePercent
		acc.rpsSum += s.RequestsPerSecond
		acc.failures += int64(s.BackendHealthFailures)
		acc.sampleCount++
	}

	summaries := make([]models.ServerHealthSummary, 0, len(byServer))
	for serverID, acc := range byServer {
		n := float64(acc.sampleCount)
		summaries = append(summaries, models.ServerHealthSummary{
			ServerID:             serverID,
			AvgCPUPercent:        Round2(acc.cpuSum / n),
			AvgMemoryPercent:     Round2(acc.memorySum / n),
			AvgDiskPercent:       Round2(acc.diskSum / n),
			AvgRequestsPerSecond: Round2(acc.rpsSum / n),
			HealthFailures:       acc.failures,
			SampleCount:          acc.sampleCount,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ServerID < summaries[j].ServerID
	})

	return summaries
}
