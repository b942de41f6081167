package metrics

import (
	"math"
	"sort"
)

// Mean computes the arithmetic mean of a float64 slice.
// Returns 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance computes the population variance of a float64 slice.
// Returns 0 for empty input.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Percentile returns the q-th percentile (0..100) using nearest-rank on a
// sorted copy. Returns 0 for empty input.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(q / 100 * float64(len(sorted))))
	return sorted[rank-1]
}

// LatencySummary describes a set of call latencies in seconds.
type LatencySummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// SummarizeLatencies builds a LatencySummary.
func SummarizeLatencies(values []float64) LatencySummary {
	return LatencySummary{
		Count:  len(values),
		Mean:   Mean(values),
		StdDev: StdDev(values),
		P50:    Percentile(values, 50),
		P95:    Percentile(values, 95),
		Max:    Percentile(values, 100),
	}
}
