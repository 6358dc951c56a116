// Package geo normalizes and grids geo-tagged power samples into
// heatmap-ready points.
package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

// DefaultPrecision is the number of coordinate decimal places used for grid
// bucketing. Five decimals is roughly a one-metre cell at the equator.
const DefaultPrecision = 5

// HeatmapPoint is a single heatmap entry: latitude, longitude and an
// intensity normalized to [0, 1].
type HeatmapPoint [3]float64

// PowerRange bounds the linear intensity normalization for heatmap points.
type PowerRange struct {
	Min float64 // Power mapped to intensity 0
	Max float64 // Power mapped to intensity 1
}

// Intensity linearly normalizes a power value into bounds, clamped to [0, 1].
// A degenerate range maps everything to 0.
func Intensity(power float64, bounds PowerRange) float64 {
	span := bounds.Max - bounds.Min
	if span == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, (power-bounds.Min)/span))
}

// HeatmapPoints converts geo samples into [lat, lng, intensity] triples.
// Samples missing latitude, longitude or power are dropped silently.
// Intensity is the sample power linearly normalized into the range and
// clamped to [0, 1].
func HeatmapPoints(samples []spectrum.GeoSample, bounds PowerRange) []HeatmapPoint {
	points := make([]HeatmapPoint, 0, len(samples))
	for i := range samples {
		s := &samples[i]
		if !s.Valid() {
			continue
		}
		points = append(points, HeatmapPoint{*s.Latitude, *s.Longitude, Intensity(*s.Power, bounds)})
	}
	return points
}

// Aggregate buckets geo samples into grid cells keyed by coordinates rounded
// to precision decimal places. Each cell carries the arithmetic mean of all
// powers mapped to it; the mean is independent of sample arrival order.
// A precision outside [0, 12] selects DefaultPrecision. Cells are returned
// ordered by latitude, then longitude, so output is deterministic.
func Aggregate(samples []spectrum.GeoSample, precision int) []spectrum.GridCell {
	if precision < 0 || precision > 12 {
		precision = DefaultPrecision
	}
	scale := math.Pow(10, float64(precision))

	type accum struct {
		lat, lng float64
		sum      float64
		count    int
	}

	cells := make(map[[2]int64]*accum)
	for i := range samples {
		s := &samples[i]
		if !s.Valid() {
			continue
		}

		lat := math.Round(*s.Latitude*scale) / scale
		lng := math.Round(*s.Longitude*scale) / scale
		key := [2]int64{int64(math.Round(lat * scale)), int64(math.Round(lng * scale))}

		c, ok := cells[key]
		if !ok {
			c = &accum{lat: lat, lng: lng}
			cells[key] = c
		}
		c.sum += *s.Power
		c.count++
	}

	out := make([]spectrum.GridCell, 0, len(cells))
	for _, c := range cells {
		out = append(out, spectrum.GridCell{
			Latitude:  c.lat,
			Longitude: c.lng,
			Power:     c.sum / float64(c.count),
			Samples:   c.count,
		})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Latitude != out[b].Latitude {
			return out[a].Latitude < out[b].Latitude
		}
		return out[a].Longitude < out[b].Longitude
	})
	return out
}

// CellKey renders the rounded cell coordinates as a stable string key for
// joins with external tile layers.
func CellKey(cell spectrum.GridCell, precision int) string {
	if precision < 0 || precision > 12 {
		precision = DefaultPrecision
	}
	return fmt.Sprintf("%.*f,%.*f", precision, cell.Latitude, precision, cell.Longitude)
}
