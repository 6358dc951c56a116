// Package analysis implements the signal analysis pipeline: noise floor
// estimation, peak detection with known-allocation classification, per-band
// occupancy statistics and rolling time-series statistics.
package analysis

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultNoiseFloor is reported when a sweep carries too few samples
	// for a quartile estimate.
	DefaultNoiseFloor = -120.0

	noiseQuartile = 4 // noise floor is the 25th percentile sample
)

// NoiseFloor estimates the noise floor of a power series as the value at the
// 25th percentile of the ascending-sorted powers. Sweeps with fewer than four
// samples fall back to DefaultNoiseFloor.
func NoiseFloor(powers []float64) float64 {
	if len(powers) < noiseQuartile {
		return DefaultNoiseFloor
	}

	sorted := slices.Clone(powers)
	slices.Sort(sorted)
	return sorted[len(sorted)/noiseQuartile]
}

// percentile returns the index-truncated percentile of an ascending-sorted
// series. No interpolation is performed: the value at index floor(n*q) is
// returned as-is.
func percentile(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Slope returns the ordinary least-squares slope of values against their
// 0-based sample index.
func Slope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}

	_, slope := stat.LinearRegression(xs, values, nil, false)
	return slope
}
