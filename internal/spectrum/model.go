package spectrum

import (
	"time"
)

// Sweep represents a single power-vs-frequency spectrum snapshot received
// from the sensor backend. Frequencies and Powers are paired by index,
// ordered by ascending frequency. A Sweep is immutable once decoded and is
// owned exclusively by whichever analysis call consumes it.
type Sweep struct {
	Frequencies []float64 `json:"frequencies"`           // Frequency of each bin in Hz
	Powers      []float64 `json:"power_dbm"`             // Measured power of each bin in dBm
	Timestamp   time.Time `json:"timestamp,omitempty"`   // Capture time, if reported
	CenterFreq  float64   `json:"center_freq,omitempty"` // Center frequency in Hz, if reported
	SampleRate  float64   `json:"sample_rate,omitempty"` // Sample rate in Hz, if reported
	Latitude    *float64  `json:"latitude,omitempty"`    // Receiver latitude, if the backend reports position
	Longitude   *float64  `json:"longitude,omitempty"`   // Receiver longitude, if the backend reports position
}

// Len returns the number of valid frequency/power pairs in the sweep.
func (s *Sweep) Len() int {
	if len(s.Frequencies) < len(s.Powers) {
		return len(s.Frequencies)
	}
	return len(s.Powers)
}

// Peak is a detected signal peak within a single sweep. Peaks are derived,
// ephemeral values: recomputed per sweep and never persisted by the analysis
// core itself.
type Peak struct {
	Frequency  float64 `json:"frequency"`           // Center frequency in Hz
	Power      float64 `json:"power"`               // Peak power in dBm
	BinIndex   int     `json:"binIndex"`            // Index of the peak bin within the sweep
	Prominence float64 `json:"prominence"`          // Power above the estimated noise floor in dB
	NoiseFloor float64 `json:"noiseFloor"`          // Noise floor estimate for the sweep in dBm
	SNR        float64 `json:"snr"`                 // Signal-to-noise ratio in dB
	KnownBand  string  `json:"knownBand,omitempty"` // Name of the matched catalog band, if any
	Type       string  `json:"type"`                // Catalog band type, or "unknown"
}

// BandStats summarizes one predefined frequency band over a single sweep.
type BandStats struct {
	Band           string  `json:"band"`           // Catalog band name
	SampleCount    int     `json:"sampleCount"`    // Number of sweep bins inside the band
	Min            float64 `json:"min"`            // Minimum in-band power in dBm
	Max            float64 `json:"max"`            // Maximum in-band power in dBm
	Mean           float64 `json:"mean"`           // Mean in-band power in dBm
	PeakFreq       float64 `json:"peakFreq"`       // Frequency of the strongest in-band bin in Hz
	PeakPower      float64 `json:"peakPower"`      // Power of the strongest in-band bin in dBm
	Occupancy      float64 `json:"occupancy"`      // Percentage of bins above the activity threshold
	ActiveChannels int     `json:"activeChannels"` // Bins above noise threshold + 10 dB
	NoiseFloor     float64 `json:"noiseFloor"`     // In-band noise floor estimate in dBm
	Bandwidth      float64 `json:"bandwidth"`      // Band width in Hz
}

// TimeSeriesSample is a single scalar observation tied to one tracked frequency.
type TimeSeriesSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Trend classifies the direction of a tracked series.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// Stats holds descriptive statistics and a trend classification for a
// bounded history of scalar samples.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"` // Population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	Slope  float64 `json:"slope"` // OLS slope of value against sample index
	Trend  Trend   `json:"trend"`
}

// GeoSample is a geo-tagged power measurement. Latitude, Longitude and Power
// use pointers so that missing fields survive decoding and can be filtered
// out instead of silently becoming zero coordinates.
type GeoSample struct {
	Latitude  *float64  `json:"latitude,omitempty"`  // Degrees, [-90, 90]
	Longitude *float64  `json:"longitude,omitempty"` // Degrees, [-180, 180]
	Power     *float64  `json:"power,omitempty"`     // Measured power in dBm
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Valid reports whether the sample carries all fields required for spatial
// aggregation.
func (g *GeoSample) Valid() bool {
	return g.Latitude != nil && g.Longitude != nil && g.Power != nil
}

// GridCell is a coordinate-rounded spatial bucket aggregating geo samples
// for heatmap rendering. Power holds the running arithmetic mean of all
// samples mapped to the cell.
type GridCell struct {
	Latitude  float64 `json:"latitude"`  // Rounded cell latitude in degrees
	Longitude float64 `json:"longitude"` // Rounded cell longitude in degrees
	Power     float64 `json:"power"`     // Mean power in dBm
	Samples   int     `json:"samples"`   // Number of samples aggregated into the cell
}

// SurveyProgress reports the state of a running survey on the sensor backend.
type SurveyProgress struct {
	SurveyID    int64   `json:"survey_id"`
	Completed   int     `json:"completed"`
	Total       int     `json:"total"`
	PercentDone float64 `json:"percent_done"`
	Status      string  `json:"status,omitempty"`
}
