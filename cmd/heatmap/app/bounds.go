package app

import (
	"math"

	"github.com/radiowatch/sigstream/internal/geo"
	"github.com/radiowatch/sigstream/internal/spectrum"
)

const (
	defaultMinPower = -120.0 // dBm
	defaultMaxPower = -20.0  // dBm

	// For 20 cells:
	// - 5% percentile  = 1 cell
	// - 95% percentile = 19th cell
	minimumCellCount = 20

	minBoundsRange = 30 // dB
)

func defaultPowerBounds() geo.PowerRange {
	return geo.PowerRange{Min: defaultMinPower, Max: defaultMaxPower}
}

// powerBounds derives the normalization range for the gradient from the
// aggregated cells, using 1 dB histogram bins and 5th/95th percentiles so a
// single hot or cold cell cannot wash out the rest of the map.
func powerBounds(cells []spectrum.GridCell) geo.PowerRange {
	if len(cells) < minimumCellCount {
		return defaultPowerBounds()
	}

	bins := make(map[int]uint32)
	minBin, maxBin := math.MaxInt32, math.MinInt32
	for _, cell := range cells {
		bin := int(math.Floor(cell.Power))
		bins[bin]++

		if bin < minBin {
			minBin = bin
		}
		if bin > maxBin {
			maxBin = bin
		}
	}

	target := uint32(len(cells) * 5 / 100)

	var count uint32
	min5th, max95th := minBin, maxBin
	for bin := minBin; bin <= maxBin; bin++ {
		count += bins[bin]
		if count >= target {
			min5th = bin
			break
		}
	}

	count = 0
	for bin := maxBin; bin >= minBin; bin-- {
		count += bins[bin]
		if count >= target {
			max95th = bin
			break
		}
	}

	if max95th-min5th < minBoundsRange {
		center := (max95th + min5th) / 2
		min5th = center - minBoundsRange/2
		max95th = center + minBoundsRange/2
	}

	margin := (max95th - min5th) / 10
	return geo.PowerRange{
		Min: float64(min5th - margin),
		Max: float64(max95th + margin),
	}
}
