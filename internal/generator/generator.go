package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// Traffic shape defaults. Weights are positional against the slices below.
var (
	defaultRegions = []string{"us-east-1", "us-west-2", "eu-west-1", "ap-southeast-1"}
	regionWeights  = []int{3, 2, 3, 2}

	requestMethods = []models.Method{
		models.MethodGet, models.MethodPost, models.MethodPut,
		models.MethodDelete, models.MethodPatch,
	}
	methodWeights = []int{70, 20, 5, 3, 2}

	statusCodes   = []int{200, 201, 204, 400, 401, 403, 404, 500, 502, 503}
	statusWeights = []int{60, 15, 10, 5, 2, 2, 3, 1, 1, 1}

	healthFailureValues  = []int{0, 1, 2, 3}
	healthFailureWeights = []int{85, 10, 4, 1}

	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"curl/7.68.0",
		"PostmanRuntime/7.28.4",
		"Python/requests 2.28.0",
		"Go-http-client/1.1",
	}
)

// anomalySpikeProbability is the share of requests that get an injected
// latency spike, simulating backend congestion.
const anomalySpikeProbability = 0.005

// Generator produces synthetic load-balancer telemetry with realistic
// traffic shape: weighted regions, methods and statuses, retry rates skewed
// by failure, business-hour load curves and rare latency spikes. A fixed
// seed makes runs reproducible.
type Generator struct {
	rng     *rand.Rand
	servers []string
	regions []string

	regionPick  weightedChoice
	methodPick  weightedChoice
	statusPick  weightedChoice
	failurePick weightedChoice
}

func New(cfg config.GeneratorConfig) *Generator {
	numServers := cfg.NumServers
	if numServers <= 0 {
		numServers = 20
	}
	regions := cfg.Regions
	if len(regions) != len(regionWeights) {
		regions = defaultRegions
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	servers := make([]string, numServers)
	for i := range servers {
		servers[i] = fmt.Sprintf("server-%03d", i+1)
	}

	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		servers:     servers,
		regions:     regions,
		regionPick:  newWeightedChoice(regionWeights),
		methodPick:  newWeightedChoice(methodWeights),
		statusPick:  newWeightedChoice(statusWeights),
		failurePick: newWeightedChoice(healthFailureWeights),
	}
}

// GenerateRequests produces request records spread uniformly over the given
// span ending now. Failed requests draw their retry rate from a hotter
// distribution than successes.
func (g *Generator) GenerateRequests(numRequests, spanHours int) []models.RequestRecord {
	baseTime := time.Now().UTC()
	spanSeconds := spanHours * 3600

	records := make([]models.RequestRecord, 0, numRequests)
	for i := 0; i < numRequests; i++ {
		ts := baseTime.Add(-time.Duration(g.rng.Intn(spanSeconds+1)) * time.Second)

		responseTime := int(g.rng.NormFloat64()*50 + 150)
		if responseTime < 1 {
			responseTime = 1
		}
		if g.rng.Float64() < anomalySpikeProbability {
			responseTime *= 3 + g.rng.Intn(6)
		}

		status := statusCodes[g.statusPick.Pick(g.rng)]

		var retryRate float64
		if status >= 400 {
			retryRate = betaSample(g.rng, 5, 15)
		} else {
			retryRate = betaSample(g.rng, 2, 30)
		}
		retryRate = math.Round(clamp(retryRate, 0, 1)*1000) / 1000

		records = append(records, models.RequestRecord{
			Timestamp:      ts,
			ServerID:       g.servers[g.rng.Intn(len(g.servers))],
			Region:         g.regions[g.regionPick.Pick(g.rng)],
			Method:         requestMethods[g.methodPick.Pick(g.rng)],
			StatusCode:     status,
			ResponseTimeMs: responseTime,
			RetryRate:      retryRate,
			BytesSent:      int64(500 + g.rng.Intn(49501)),
			ClientIP:       g.randomIP(),
			UserAgent:      userAgents[g.rng.Intn(len(userAgents))],
		})
	}

	logger.Debugf("generated %d request records over %dh", len(records), spanHours)
	return records
}

// GenerateServerMetrics produces one sample per server per interval over
// the duration. Each server carries a baseline load; CPU, memory, network
// and connections correlate with it, modulated by a business-hour curve.
func (g *Generator) GenerateServerMetrics(durationHours, intervalMinutes int) []models.ServerMetricSample {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	baseTime := time.Now().UTC()
	intervals := durationHours * (60 / intervalMinutes)

	samples := make([]models.ServerMetricSample, 0, len(g.servers)*intervals)
	for _, server := range g.servers {
		baseline := 0.2 + g.rng.Float64()*0.6

		for interval := 0; interval < intervals; interval++ {
			ts := baseTime.Add(-time.Duration(interval*intervalMinutes) * time.Minute)

			factor := temporalFactor(ts.Hour())
			baseLoad := clamp(baseline*factor+g.rng.NormFloat64()*0.1, 0, 0.95)

			networkFactor := baseLoad * (0.8 + g.rng.Float64()*0.4)

			samples = append(samples, models.ServerMetricSample{
				Timestamp:             ts,
				ServerID:              server,
				CPUUsagePercent:       round2(clamp(baseLoad*100+g.rng.NormFloat64()*8, 0, 100)),
				MemoryUsagePercent:    round2(clamp(baseLoad*85+g.rng.NormFloat64()*10, 0, 100)),
				DiskUsagePercent:      round2(35 + g.rng.Float64()*50),
				NetworkInMbps:         round2(math.Max(0, networkFactor*800+g.rng.NormFloat64()*100)),
				NetworkOutMbps:        round2(math.Max(0, networkFactor*600+g.rng.NormFloat64()*80)),
				ActiveConnections:     int(math.Max(0, baseLoad*600+g.rng.NormFloat64()*50)),
				RequestsPerSecond:     math.Trunc(math.Max(0, baseLoad*120+g.rng.NormFloat64()*20)),
				BackendHealthFailures: healthFailureValues[g.failurePick.Pick(g.rng)],
			})
		}
	}

	logger.Debugf("generated %d metric samples for %d servers", len(samples), len(g.servers))
	return samples
}

// GenerateBatch produces a complete telemetry batch with a fresh batch id.
func (g *Generator) GenerateBatch(numRequests, spanHours, intervalMinutes int) models.TelemetryBatch {
	return models.TelemetryBatch{
		BatchID:  models.NewUUID(),
		Requests: g.GenerateRequests(numRequests, spanHours),
		Metrics:  g.GenerateServerMetrics(spanHours, intervalMinutes),
	}
}

// temporalFactor scales load by hour of day: heavier during business hours,
// lighter at night.
func temporalFactor(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 17:
		return 1.3
	case hour >= 22 || hour <= 6:
		return 0.7
	default:
		return 1.0
	}
}

func (g *Generator) randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+g.rng.Intn(254), 1+g.rng.Intn(254), 1+g.rng.Intn(254), 1+g.rng.Intn(254))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
