package models

import "time"

// SeverityTier labels how many anomaly signals a request triggered.
type SeverityTier string

const (
	TierNormal   SeverityTier = "Normal"
	TierMinor    SeverityTier = "Minor"
	TierModerate SeverityTier = "Moderate"
	TierCritical SeverityTier = "Critical"
)

// severityByScore maps an anomaly score (0-3) to its tier.
var severityByScore = [4]SeverityTier{TierNormal, TierMinor, TierModerate, TierCritical}

// TierForScore returns the severity tier for an anomaly score. Scores
// outside 0-3 cannot be produced by the classifier; they clamp to the
// nearest tier so a bad caller still gets a defined answer.
func TierForScore(score int) SeverityTier {
	if score < 0 {
		score = 0
	}
	if score > 3 {
		score = 3
	}
	return severityByScore[score]
}

// FailureType names the backend failure mode behind a failure status code.
type FailureType string

const (
	FailureInternalError      FailureType = "Internal Error"
	FailureServiceUnavailable FailureType = "Service Unavailable"
	FailureGatewayTimeout     FailureType = "Gateway Timeout"
	FailureOther              FailureType = "Other"
)

var failureTypeByStatus = map[int]FailureType{
	500: FailureInternalError,
	503: FailureServiceUnavailable,
	504: FailureGatewayTimeout,
}

// FailureTypeForStatus maps a status code to a failure type label.
func FailureTypeForStatus(status int) FailureType {
	if ft, ok := failureTypeByStatus[status]; ok {
		return ft
	}
	return FailureOther
}

// LatencyBucket is a coarse response-time category for reporting.
type LatencyBucket string

const (
	LatencyFast     LatencyBucket = "Fast"
	LatencyModerate LatencyBucket = "Moderate"
	LatencySlow     LatencyBucket = "Slow"
	LatencyVerySlow LatencyBucket = "Very Slow"
)

// latencyBuckets holds upper bounds in milliseconds, checked in order.
var latencyBuckets = []struct {
	MaxMs  int
	Bucket LatencyBucket
}{
	{500, LatencyFast},
	{1000, LatencyModerate},
	{3000, LatencySlow},
}

// BucketForLatency maps a response time to its latency bucket.
func BucketForLatency(responseTimeMs int) LatencyBucket {
	for _, b := range latencyBuckets {
		if responseTimeMs <= b.MaxMs {
			return b.Bucket
		}
	}
	return LatencyVerySlow
}

// MethodCategory groups HTTP verbs by their traffic profile.
type MethodCategory string

const (
	CategoryRead       MethodCategory = "Read"
	CategoryWrite      MethodCategory = "Write"
	CategoryDangerZone MethodCategory = "Danger Zone"
	CategoryOther      MethodCategory = "Other"
)

var categoryByMethod = map[Method]MethodCategory{
	MethodGet:    CategoryRead,
	MethodHead:   CategoryRead,
	MethodPost:   CategoryWrite,
	MethodPut:    CategoryWrite,
	MethodPatch:  CategoryWrite,
	MethodDelete: CategoryDangerZone,
}

// CategoryForMethod maps an HTTP verb to its category.
func CategoryForMethod(m Method) MethodCategory {
	if cat, ok := categoryByMethod[m]; ok {
		return cat
	}
	return CategoryOther
}

// IsWeekend reports whether the timestamp falls on a Saturday or Sunday (UTC).
func IsWeekend(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AnomalyAnnotation is the classification computed once per RequestRecord
// at ingestion time. It is never mutated afterwards.
type AnomalyAnnotation struct {
	IsFailure        bool           `json:"is_failure"`
	IsLatencyOutlier bool           `json:"is_latency_outlier"`
	IsRetrySpike     bool           `json:"is_retry_spike"`
	AnomalyScore     int            `json:"anomaly_score"`
	SeverityTier     SeverityTier   `json:"severity_tier"`
	FailureType      FailureType    `json:"failure_type"`
	LatencyBucket    LatencyBucket  `json:"latency_bucket"`
	MethodCategory   MethodCategory `json:"method_category"`
	IsWeekend        bool           `json:"is_weekend"`
}
