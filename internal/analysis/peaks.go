package analysis

import (
	"sort"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

const (
	// DefaultPeakThreshold is the minimum absolute power for a peak candidate.
	DefaultPeakThreshold = -80.0

	// DefaultMinProminence is the minimum power above the noise floor.
	DefaultMinProminence = 10.0

	// DefaultMinDistance is the exclusion radius between accepted peaks,
	// in bins.
	DefaultMinDistance = 5
)

// PeakOptions configures peak detection. Zero values select the documented
// defaults; MaxPeaks <= 0 leaves the result uncapped.
type PeakOptions struct {
	Threshold     float64 // Minimum peak power in dBm
	MinProminence float64 // Minimum power above the noise floor in dB
	MinDistance   int     // Minimum separation between accepted peaks in bins
	MaxPeaks      int     // Cap on the number of returned peaks, 0 for no cap
}

// DefaultPeakOptions returns the standard detection configuration.
func DefaultPeakOptions() PeakOptions {
	return PeakOptions{
		Threshold:     DefaultPeakThreshold,
		MinProminence: DefaultMinProminence,
		MinDistance:   DefaultMinDistance,
	}
}

func (o PeakOptions) withDefaults() PeakOptions {
	if o.Threshold == 0 {
		o.Threshold = DefaultPeakThreshold
	}
	if o.MinProminence == 0 {
		o.MinProminence = DefaultMinProminence
	}
	if o.MinDistance == 0 {
		o.MinDistance = DefaultMinDistance
	}
	return o
}

// DetectPeaks scans a sweep for strict local maxima and returns the accepted
// peaks ordered by descending power.
//
// A candidate bin i (interior bins only) must satisfy
// powers[i] > powers[i-1] and powers[i] > powers[i+1]. Candidates below the
// power threshold or with prominence below MinProminence over the sweep noise
// floor are rejected. A candidate within MinDistance bins of an
// already-accepted peak is dropped: acceptance scans ascending bin index, so
// the first-discovered peak wins the exclusion radius even when a stronger
// neighbour follows. That bias is part of the contract, not an accident.
//
// Accepted peaks are classified against the known-band catalog in catalog
// order; frequencies outside every entry get type "unknown".
func DetectPeaks(frequencies, powers []float64, opts PeakOptions) []spectrum.Peak {
	n := min(len(frequencies), len(powers))
	if n == 0 {
		return nil
	}

	opts = opts.withDefaults()
	noiseFloor := NoiseFloor(powers[:n])

	var peaks []spectrum.Peak
	for i := 1; i < n-1; i++ {
		if powers[i] <= powers[i-1] || powers[i] <= powers[i+1] {
			continue
		}
		if powers[i] < opts.Threshold {
			continue
		}

		prominence := powers[i] - noiseFloor
		if prominence < opts.MinProminence {
			continue
		}

		if tooClose(peaks, i, opts.MinDistance) {
			continue
		}

		peak := spectrum.Peak{
			Frequency:  frequencies[i],
			Power:      powers[i],
			BinIndex:   i,
			Prominence: prominence,
			NoiseFloor: noiseFloor,
			SNR:        powers[i] - noiseFloor,
			Type:       "unknown",
		}
		if band := spectrum.ClassifyFrequency(frequencies[i]); band != nil {
			peak.KnownBand = band.Name
			peak.Type = band.Type
		}

		peaks = append(peaks, peak)
	}

	sort.SliceStable(peaks, func(a, b int) bool {
		return peaks[a].Power > peaks[b].Power
	})

	if opts.MaxPeaks > 0 && len(peaks) > opts.MaxPeaks {
		peaks = peaks[:opts.MaxPeaks]
	}
	return peaks
}

func tooClose(accepted []spectrum.Peak, bin, minDistance int) bool {
	for i := range accepted {
		d := bin - accepted[i].BinIndex
		if d < 0 {
			d = -d
		}
		if d < minDistance {
			return true
		}
	}
	return false
}
