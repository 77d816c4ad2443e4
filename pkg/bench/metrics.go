package bench

import (
	"math"
	"time"
)

const bytesPerMiB = 1024 * 1024

// RawSample is one timed object operation. Samples are produced and
// consumed within a single Run invocation.
type RawSample struct {
	Duration time.Duration
	Bytes    int64
	Err      error
}

// Repeat holds the samples of one repeat together with its wall-clock
// duration. Parallel repeats join all workers before the duration is taken.
type Repeat struct {
	Samples  []RawSample
	Duration time.Duration
}

// Result is the aggregated outcome of one (provider, operation,
// size class) cell.
type Result struct {
	Provider     string    `json:"provider"`
	ProviderKind string    `json:"provider_kind"`
	Operation    Operation `json:"operation"`
	ByteSize     int64     `json:"byte_size"`
	FileCount    int       `json:"file_count"`
	Repeats      int       `json:"repeats"`

	// TotalBytes counts completed transfers only; failed operations
	// contribute nothing here and show up in Failures instead.
	TotalBytes     int64   `json:"total_bytes"`
	Duration       float64 `json:"duration_seconds"`
	ThroughputMBps float64 `json:"throughput_mbps"`
	OpsPerSec      float64 `json:"ops_per_sec"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	MinLatencyMs   float64 `json:"min_latency_ms"`
	MaxLatencyMs   float64 `json:"max_latency_ms"`

	// VariancePct is the relative standard deviation of per-repeat
	// throughput, capturing run-to-run instability.
	VariancePct float64 `json:"variance_pct"`

	Failures int `json:"failures"`

	// Failed marks a cell where every sample failed, distinguishing
	// "no data" from "not attempted".
	Failed bool `json:"failed"`
}

// Aggregate reduces per-repeat sample groups into a Result. It is a pure
// function; provider identity is attached by the caller.
func Aggregate(op Operation, class SizeClass, repeats []Repeat) *Result {
	result := &Result{
		Operation: op,
		ByteSize:  class.ByteSize,
		FileCount: class.FileCount,
		Repeats:   len(repeats),
	}

	var (
		totalDuration     time.Duration
		successCount      int
		minLatency        = time.Duration(math.MaxInt64)
		maxLatency        time.Duration
		latencySum        time.Duration
		repeatThroughputs = make([]float64, 0, len(repeats))
	)

	for _, repeat := range repeats {
		totalDuration += repeat.Duration

		var repeatBytes int64

		for _, sample := range repeat.Samples {
			if sample.Err != nil {
				result.Failures++

				continue
			}

			successCount++
			result.TotalBytes += sample.Bytes
			repeatBytes += sample.Bytes
			latencySum += sample.Duration

			if sample.Duration < minLatency {
				minLatency = sample.Duration
			}

			if sample.Duration > maxLatency {
				maxLatency = sample.Duration
			}
		}

		if secs := repeat.Duration.Seconds(); secs > 0 {
			repeatThroughputs = append(
				repeatThroughputs,
				float64(repeatBytes)/secs/bytesPerMiB,
			)
		}
	}

	result.Duration = totalDuration.Seconds()

	if successCount == 0 {
		result.Failed = true

		return result
	}

	if result.Duration > 0 {
		result.ThroughputMBps = float64(result.TotalBytes) / result.Duration / bytesPerMiB
		result.OpsPerSec = float64(successCount) / result.Duration
	}

	result.AvgLatencyMs = durationMs(latencySum) / float64(successCount)
	result.MinLatencyMs = durationMs(minLatency)
	result.MaxLatencyMs = durationMs(maxLatency)
	result.VariancePct = relativeStdDev(repeatThroughputs)

	return result
}

// relativeStdDev returns the population standard deviation as a percentage
// of the mean. A single measurement has no run-to-run variance.
func relativeStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var mean float64
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	variance /= float64(len(values))

	return math.Sqrt(variance) / mean * 100
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
