package analysis

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

const (
	// DefaultNoiseThreshold is the reference noise level for counting
	// active channels within a band.
	DefaultNoiseThreshold = -100.0

	// activityThreshold is the fixed cutoff above which a bin counts
	// towards band occupancy. Independent of the noise threshold.
	activityThreshold = -90.0

	// activeChannelMargin is how far above the noise threshold a bin must
	// be to count as an active channel.
	activeChannelMargin = 10.0
)

// CalculateBandStats summarizes the portion of a sweep falling inside the
// given band, inclusive of both edges. Returns nil when no sweep bin lies
// inside the band. The calculator is stateless; calling it once per catalog
// band over the same sweep is the expected usage.
func CalculateBandStats(frequencies, powers []float64, band spectrum.KnownBand, noiseThreshold float64) *spectrum.BandStats {
	n := min(len(frequencies), len(powers))

	var inBand []float64
	stats := spectrum.BandStats{
		Band:      band.Name,
		Bandwidth: band.Width(),
	}

	for i := 0; i < n; i++ {
		if !band.Contains(frequencies[i]) {
			continue
		}

		p := powers[i]
		if inBand == nil || p > stats.PeakPower {
			stats.PeakPower = p
			stats.PeakFreq = frequencies[i]
		}
		if p > activityThreshold {
			stats.Occupancy++
		}
		if p > noiseThreshold+activeChannelMargin {
			stats.ActiveChannels++
		}
		inBand = append(inBand, p)
	}

	if len(inBand) == 0 {
		return nil
	}

	stats.SampleCount = len(inBand)
	stats.Mean = stat.Mean(inBand, nil)
	stats.Occupancy = 100 * stats.Occupancy / float64(len(inBand))

	slices.Sort(inBand)
	stats.Min = inBand[0]
	stats.Max = inBand[len(inBand)-1]

	// Quartile estimate degrades to the band minimum for small bands.
	stats.NoiseFloor = inBand[len(inBand)/noiseQuartile]

	return &stats
}

// AllBandStats runs the band calculator over every catalog band and returns
// the non-empty summaries in catalog order.
func AllBandStats(frequencies, powers []float64, noiseThreshold float64) []*spectrum.BandStats {
	var out []*spectrum.BandStats
	for _, band := range spectrum.KnownBands {
		if s := CalculateBandStats(frequencies, powers, band, noiseThreshold); s != nil {
			out = append(out, s)
		}
	}
	return out
}
