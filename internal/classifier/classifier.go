package classifier

import (
	"fmt"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// Signal thresholds. These are tuning knobs, kept apart from the scoring
// algorithm itself.
const (
	DefaultLatencyOutlierMs = 1000
	DefaultRetrySpikeRate   = 0.3
)

// DefaultFailureStatuses are the status codes counted as backend failures.
var DefaultFailureStatuses = []int{500, 503, 504}

type Config struct {
	FailureStatuses  []int
	LatencyOutlierMs int
	RetrySpikeRate   float64
}

// Classifier assigns anomaly annotations to request records. It holds no
// mutable state: classification is a pure function of a single record's
// fields, independent of batch order.
type Classifier struct {
	failureStatuses  map[int]bool
	latencyOutlierMs int
	retrySpikeRate   float64
}

func New(cfg Config) *Classifier {
	if len(cfg.FailureStatuses) == 0 {
		cfg.FailureStatuses = DefaultFailureStatuses
	}
	if cfg.LatencyOutlierMs == 0 {
		cfg.LatencyOutlierMs = DefaultLatencyOutlierMs
	}
	if cfg.RetrySpikeRate == 0 {
		cfg.RetrySpikeRate = DefaultRetrySpikeRate
	}

	statuses := make(map[int]bool, len(cfg.FailureStatuses))
	for _, s := range cfg.FailureStatuses {
		statuses[s] = true
	}

	return &Classifier{
		failureStatuses:  statuses,
		latencyOutlierMs: cfg.LatencyOutlierMs,
		retrySpikeRate:   cfg.RetrySpikeRate,
	}
}

// Classify scores one record against the three anomaly signals. The score
// is the unweighted sum of the triggered signals and the severity tier is
// a direct mapping from it. A malformed status code never crashes
// classification: it simply cannot count as a failure.
func (c *Classifier) Classify(r models.RequestRecord) models.AnomalyAnnotation {
	isFailure := r.HasValidStatus() && c.failureStatuses[r.StatusCode]
	isLatencyOutlier := r.ResponseTimeMs > c.latencyOutlierMs
	isRetrySpike := r.RetryRate > c.retrySpikeRate

	score := 0
	if isFailure {
		score++
	}
	if isLatencyOutlier {
		score++
	}
	if isRetrySpike {
		score++
	}

	return models.AnomalyAnnotation{
		IsFailure:        isFailure,
		IsLatencyOutlier: isLatencyOutlier,
		IsRetrySpike:     isRetrySpike,
		AnomalyScore:     score,
		SeverityTier:     models.TierForScore(score),
		FailureType:      models.FailureTypeForStatus(r.StatusCode),
		LatencyBucket:    models.BucketForLatency(r.ResponseTimeMs),
		MethodCategory:   models.CategoryForMethod(r.Method),
		IsWeekend:        models.IsWeekend(r.Timestamp),
	}
}

// Warning flags a data-quality issue found while classifying a batch. The
// affected record is still annotated; the caller decides what to do with
// the warning.
type Warning struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("record %d: %s %s", w.Index, w.Field, w.Reason)
}

func checkRecord(i int, r models.RequestRecord) []Warning {
	var warnings []Warning
	if !r.HasValidStatus() {
		warnings = append(warnings, Warning{
			Index:  i,
			Field:  "status_code",
			Reason: fmt.Sprintf("value %d outside HTTP range, treated as non-failure", r.StatusCode),
		})
	}
	if r.RetryRate < 0 || r.RetryRate > 1 {
		warnings = append(warnings, Warning{
			Index:  i,
			Field:  "retry_rate",
			Reason: fmt.Sprintf("value %.3f outside [0,1]", r.RetryRate),
		})
	}
	if r.ResponseTimeMs < 0 {
		warnings = append(warnings, Warning{
			Index:  i,
			Field:  "response_time_ms",
			Reason: fmt.Sprintf("negative value %d", r.ResponseTimeMs),
		})
	}
	return warnings
}

// ClassifyBatch annotates every record and collects data-quality warnings.
// Annotations line up with the input by index.
func (c *Classifier) ClassifyBatch(records []models.RequestRecord) ([]models.AnomalyAnnotation, []Warning) {
	annotations := make([]models.AnomalyAnnotation, len(records))
	var warnings []Warning

	for i, r := range records {
		annotations[i] = c.Classify(r)
		warnings = append(warnings, checkRecord(i, r)...)
	}

	return annotations, warnings
}
