package models

import "time"

// SystemMetrics is a JSON summary of the Prometheus counters.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"avg_request_duration_ms"`
	RecordsSaved             map[string]uint64 `json:"records_saved"`
	StatusUpdates            map[string]uint64 `json:"status_updates"`
	DispatchFailures         map[string]uint64 `json:"dispatch_failures"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
