package store

import (
	"time"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
)

// Run is one benchmark invocation across all providers.
type Run struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Name      string    `json:"name"`
	Profile   string    `gorm:"index" json:"profile"`
	Workers   int       `json:"workers"`
	Repeats   int       `json:"repeats"`
	Status    string    `gorm:"index" json:"status"`
	Notes     string    `json:"notes"`

	// SystemInfo is a JSON snapshot of the host the run executed on.
	SystemInfo string `gorm:"type:text" json:"system_info"`
}

// Result is one persisted (provider, operation, size class) cell.
type Result struct {
	ID    uint `gorm:"primaryKey" json:"id"`
	RunID uint `gorm:"not null;index" json:"run_id"`

	Provider     string `gorm:"not null;index" json:"provider"`
	ProviderKind string `json:"provider_kind"`
	Operation    string `gorm:"not null" json:"operation"`
	ByteSize     int64  `gorm:"not null" json:"byte_size"`
	FileCount    int    `json:"file_count"`
	Repeats      int    `json:"repeats"`

	TotalBytes     int64   `json:"total_bytes"`
	Duration       float64 `json:"duration_seconds"`
	ThroughputMBps float64 `gorm:"column:throughput_mbps" json:"throughput_mbps"`
	OpsPerSec      float64 `json:"ops_per_sec"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	MinLatencyMs   float64 `json:"min_latency_ms"`
	MaxLatencyMs   float64 `json:"max_latency_ms"`
	VariancePct    float64 `json:"variance_pct"`
	Failures       int     `json:"failures"`
	Failed         bool    `json:"failed"`
}

// ProviderStats aggregates a provider's history across all runs.
type ProviderStats struct {
	Provider          string  `json:"provider"`
	Cells             int64   `json:"cells"`
	AvgThroughputMBps float64 `gorm:"column:avg_throughput_mbps" json:"avg_throughput_mbps"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	TotalFailures     int64   `json:"total_failures"`
}

// ResultFromBench converts an in-memory benchmark cell into its persisted
// form.
func ResultFromBench(runID uint, r *bench.Result) *Result {
	return &Result{
		RunID:          runID,
		Provider:       r.Provider,
		ProviderKind:   r.ProviderKind,
		Operation:      string(r.Operation),
		ByteSize:       r.ByteSize,
		FileCount:      r.FileCount,
		Repeats:        r.Repeats,
		TotalBytes:     r.TotalBytes,
		Duration:       r.Duration,
		ThroughputMBps: r.ThroughputMBps,
		OpsPerSec:      r.OpsPerSec,
		AvgLatencyMs:   r.AvgLatencyMs,
		MinLatencyMs:   r.MinLatencyMs,
		MaxLatencyMs:   r.MaxLatencyMs,
		VariancePct:    r.VariancePct,
		Failures:       r.Failures,
		Failed:         r.Failed,
	}
}
