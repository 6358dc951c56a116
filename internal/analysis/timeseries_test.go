package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

func TestCalculateStats_Empty(t *testing.T) {
	if stats := CalculateStats(nil); stats != nil {
		t.Fatalf("expected nil for empty series, got %+v", stats)
	}
}

func TestCalculateStats_Descriptive(t *testing.T) {
	values := []float64{-80, -70, -60, -50}

	stats := CalculateStats(values)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}

	if stats.Count != 4 {
		t.Errorf("count = %d, want 4", stats.Count)
	}
	if math.Abs(stats.Mean+65) > 1e-9 {
		t.Errorf("mean = %f, want -65", stats.Mean)
	}
	// Population standard deviation, not sample.
	if want := math.Sqrt(125); math.Abs(stats.StdDev-want) > 1e-9 {
		t.Errorf("stddev = %f, want %f", stats.StdDev, want)
	}
	if stats.Min != -80 || stats.Max != -50 {
		t.Errorf("min/max = %f/%f, want -80/-50", stats.Min, stats.Max)
	}
	// Even count: median is the average of the two middle elements.
	if stats.Median != -65 {
		t.Errorf("median = %f, want -65", stats.Median)
	}
	// Index-truncated percentiles: idx 1 and idx 3 of the sorted series.
	if stats.P25 != -70 {
		t.Errorf("p25 = %f, want -70", stats.P25)
	}
	if stats.P75 != -50 {
		t.Errorf("p75 = %f, want -50", stats.P75)
	}
}

func TestCalculateStats_Trend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   spectrum.Trend
	}{
		{"rising", []float64{-80, -75, -70, -65, -60}, spectrum.TrendUp},
		{"falling", []float64{-60, -65, -70, -75, -80}, spectrum.TrendDown},
		{"flat", []float64{-70, -70.1, -70, -69.9, -70}, spectrum.TrendFlat},
		{"slope on the threshold is flat", []float64{0, 0.1, 0.2}, spectrum.TrendFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CalculateStats(tt.values)
			if stats == nil {
				t.Fatal("expected stats, got nil")
			}
			if stats.Trend != tt.want {
				t.Errorf("trend = %q (slope %f), want %q", stats.Trend, stats.Slope, tt.want)
			}
		})
	}
}

func TestTrackedSeries_ObserveMatchesClosestBin(t *testing.T) {
	series := NewTrackedSeries(100e6, 10)
	sweep := &spectrum.Sweep{
		Frequencies: []float64{99.5e6, 100.2e6, 101.5e6},
		Powers:      []float64{-80, -55, -90},
		Timestamp:   time.Now(),
	}

	if !series.Observe(sweep) {
		t.Fatal("expected the sweep to contribute a sample")
	}
	if series.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", series.Len())
	}
	if got := series.Samples()[0].Value; got != -55 {
		t.Errorf("expected the 100.2 MHz bin power -55, got %f", got)
	}
}

func TestTrackedSeries_ObserveRejectsDistantBin(t *testing.T) {
	series := NewTrackedSeries(100e6, 10)
	sweep := &spectrum.Sweep{
		// Closest bin is 1.5% away from the target; above the 1% limit.
		Frequencies: []float64{101.5e6, 103e6, 105e6},
		Powers:      []float64{-60, -70, -80},
	}

	if series.Observe(sweep) {
		t.Fatal("expected no sample for a bin outside the 1% window")
	}
	if series.Len() != 0 {
		t.Fatalf("expected empty series, got %d samples", series.Len())
	}
}

func TestTrackedSeries_CapacityEvictsOldest(t *testing.T) {
	series := NewTrackedSeries(100e6, 3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		series.Add(spectrum.TimeSeriesSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Value:     float64(i),
		})
	}

	if series.Len() != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", series.Len())
	}
	samples := series.Samples()
	for i, want := range []float64{2, 3, 4} {
		if samples[i].Value != want {
			t.Errorf("sample %d = %f, want %f", i, samples[i].Value, want)
		}
	}
}

func TestTrackedSeries_SeedTruncatesToCapacity(t *testing.T) {
	series := NewTrackedSeries(100e6, 3)

	history := make([]spectrum.TimeSeriesSample, 5)
	for i := range history {
		history[i] = spectrum.TimeSeriesSample{Value: float64(i)}
	}
	series.Seed(history)

	if series.Len() != 3 {
		t.Fatalf("expected 3 samples after seed, got %d", series.Len())
	}
	if got := series.Samples()[0].Value; got != 2 {
		t.Errorf("expected the most recent history to survive, first value %f", got)
	}
}

func TestTrackedSeries_StatsEmpty(t *testing.T) {
	series := NewTrackedSeries(100e6, 10)
	if stats := series.Stats(); stats != nil {
		t.Fatalf("expected nil stats for empty series, got %+v", stats)
	}
}
