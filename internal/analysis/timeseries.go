package analysis

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

const (
	// trendSlopeThreshold separates "up"/"down" from "flat". The constant
	// assumes dBm-scale magnitudes; series tracked in other units will see
	// a different sensitivity.
	trendSlopeThreshold = 0.1

	// DefaultSeriesCapacity bounds a tracked series history.
	DefaultSeriesCapacity = 500

	// maxRelativeFreqError is the largest relative error between a tracked
	// frequency and the closest sweep bin for the bin to contribute a sample.
	maxRelativeFreqError = 0.01
)

// CalculateStats computes descriptive statistics and a trend classification
// for a series of scalar samples. Returns nil for an empty series.
func CalculateStats(values []float64) *spectrum.Stats {
	if len(values) == 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := spectrum.Stats{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		StdDev: stat.PopStdDev(values, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: median(sorted),
		P25:    percentile(sorted, 0.25),
		P75:    percentile(sorted, 0.75),
		Slope:  Slope(values),
	}

	switch {
	case s.Slope > trendSlopeThreshold:
		s.Trend = spectrum.TrendUp
	case s.Slope < -trendSlopeThreshold:
		s.Trend = spectrum.TrendDown
	default:
		s.Trend = spectrum.TrendFlat
	}

	return &s
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// TrackedSeries accumulates power observations for one tracked frequency
// over successive sweeps. The history is bounded: once capacity is reached
// the oldest sample is evicted for each new one.
type TrackedSeries struct {
	frequency float64
	capacity  int
	samples   []spectrum.TimeSeriesSample
}

// NewTrackedSeries creates a bounded series for the target frequency.
// A non-positive capacity selects DefaultSeriesCapacity.
func NewTrackedSeries(frequency float64, capacity int) *TrackedSeries {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &TrackedSeries{
		frequency: frequency,
		capacity:  capacity,
		samples:   make([]spectrum.TimeSeriesSample, 0, capacity),
	}
}

// Frequency returns the tracked target frequency in Hz.
func (t *TrackedSeries) Frequency() float64 { return t.frequency }

// Len returns the number of accumulated samples.
func (t *TrackedSeries) Len() int { return len(t.samples) }

// Add appends a sample, evicting the oldest when the series is full.
func (t *TrackedSeries) Add(sample spectrum.TimeSeriesSample) {
	if len(t.samples) >= t.capacity {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:len(t.samples)-1]
	}
	t.samples = append(t.samples, sample)
}

// Seed replaces the series content with historical samples, typically
// fetched from the backend measurement endpoint. Only the most recent
// samples are kept when the history exceeds capacity.
func (t *TrackedSeries) Seed(samples []spectrum.TimeSeriesSample) {
	if len(samples) > t.capacity {
		samples = samples[len(samples)-t.capacity:]
	}
	t.samples = t.samples[:0]
	t.samples = append(t.samples, samples...)
}

// Observe matches the sweep bin closest to the tracked frequency and, when
// the relative frequency error is below 1%, records its power. Returns true
// when the sweep contributed a sample.
func (t *TrackedSeries) Observe(sweep *spectrum.Sweep) bool {
	n := sweep.Len()
	if n == 0 {
		return false
	}

	freqs := sweep.Frequencies[:n]
	i := sort.SearchFloat64s(freqs, t.frequency)

	// The insertion point neighbours are the only closest-bin candidates.
	best := -1
	for _, c := range []int{i - 1, i} {
		if c < 0 || c >= n {
			continue
		}
		if best < 0 || math.Abs(freqs[c]-t.frequency) < math.Abs(freqs[best]-t.frequency) {
			best = c
		}
	}

	if best < 0 || math.Abs(freqs[best]-t.frequency) >= maxRelativeFreqError*t.frequency {
		return false
	}

	t.Add(spectrum.TimeSeriesSample{
		Timestamp: sweep.Timestamp,
		Value:     sweep.Powers[best],
	})
	return true
}

// Stats summarizes the accumulated history. Returns nil when no samples
// have been recorded yet.
func (t *TrackedSeries) Stats() *spectrum.Stats {
	if len(t.samples) == 0 {
		return nil
	}
	values := make([]float64, len(t.samples))
	for i, s := range t.samples {
		values[i] = s.Value
	}
	return CalculateStats(values)
}

// Samples returns a copy of the accumulated history, oldest first.
func (t *TrackedSeries) Samples() []spectrum.TimeSeriesSample {
	return slices.Clone(t.samples)
}
