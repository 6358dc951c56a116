package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/radiowatch/sigstream/internal/analysis"
	"github.com/radiowatch/sigstream/internal/history"
	"github.com/radiowatch/sigstream/internal/spectrum"
	"github.com/radiowatch/sigstream/internal/storage"
)

// WithStore enables recording of analysis results into the given session.
func WithStore(store storage.Store, sessionID int64) func(*Pipeline) {
	return func(p *Pipeline) {
		p.store = store
		p.sessionID = sessionID
	}
}

// Pipeline runs the per-sweep analysis chain: peak detection, band
// statistics, tracked-frequency observation and optional recording. A single
// Pipeline may receive sweeps from multiple channels; processing is
// serialized.
type Pipeline struct {
	logger *slog.Logger

	peakOpts       analysis.PeakOptions
	noiseThreshold float64

	store     storage.Store
	sessionID int64

	mu     sync.Mutex
	series []*analysis.TrackedSeries
	trends map[float64]spectrum.Trend
}

// NewPipeline creates a Pipeline tracking the given frequencies.
func NewPipeline(config *AnalysisConfig, logger *slog.Logger, options ...func(*Pipeline)) *Pipeline {
	opts := analysis.PeakOptions{
		Threshold:     config.PeakThreshold,
		MinProminence: config.MinProminence,
		MinDistance:   config.MinDistance,
		MaxPeaks:      config.MaxPeaks,
	}

	noiseThreshold := config.NoiseThreshold
	if noiseThreshold == 0 {
		noiseThreshold = analysis.DefaultNoiseThreshold
	}

	p := Pipeline{
		logger:         logger,
		peakOpts:       opts,
		noiseThreshold: noiseThreshold,
		trends:         make(map[float64]spectrum.Trend),
	}
	for _, freq := range config.TrackedFrequencies {
		p.series = append(p.series, analysis.NewTrackedSeries(freq, config.SeriesCapacity))
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Seed loads recent measurements for every tracked frequency from the
// history API, so trend analysis has context before live data arrives.
func (p *Pipeline) Seed(ctx context.Context, client *history.Client, lookback time.Duration, limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, series := range p.series {
		samples, err := client.Measurements(ctx, history.SeedQuery(series.Frequency(), lookback, limit))
		if err != nil {
			p.logger.Warn("seeding tracked series failed",
				slog.String("frequency", humanize.SI(series.Frequency(), "Hz")),
				slog.Any("error", err))
			continue
		}

		series.Seed(samples)
		p.logger.Info("tracked series seeded",
			slog.String("frequency", humanize.SI(series.Frequency(), "Hz")),
			slog.Int("samples", len(samples)))
	}
}

// HandleSweep is the dispatcher sweep sink.
func (p *Pipeline) HandleSweep(sweep *spectrum.Sweep) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := sweep.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	peaks := analysis.DetectPeaks(sweep.Frequencies, sweep.Powers, p.peakOpts)
	if len(peaks) > 0 {
		top := peaks[0]
		p.logger.Debug("peaks detected",
			slog.Int("count", len(peaks)),
			slog.String("topFrequency", humanize.SI(top.Frequency, "Hz")),
			slog.Float64("topPower", top.Power),
			slog.String("band", top.KnownBand))
	}

	bandStats := analysis.AllBandStats(sweep.Frequencies, sweep.Powers, p.noiseThreshold)

	for _, series := range p.series {
		if !series.Observe(sweep) {
			continue
		}
		p.reportTrend(series)
	}

	if p.store == nil {
		return
	}

	ctx := context.Background()
	if err := p.store.StorePeaks(ctx, p.sessionID, ts, peaks); err != nil {
		p.logger.Error(fmt.Sprintf("storing peaks: %s", err))
	}
	if err := p.store.StoreBandStats(ctx, p.sessionID, ts, bandStats); err != nil {
		p.logger.Error(fmt.Sprintf("storing band stats: %s", err))
	}
	if sample := geoSample(sweep, ts); sample != nil {
		if err := p.store.StoreGeoSamples(ctx, p.sessionID, []spectrum.GeoSample{*sample}); err != nil {
			p.logger.Error(fmt.Sprintf("storing geo sample: %s", err))
		}
	}
}

// HandleProgress is the dispatcher progress sink.
func (p *Pipeline) HandleProgress(progress *spectrum.SurveyProgress) {
	p.logger.Info("survey progress",
		slog.Int64("surveyID", progress.SurveyID),
		slog.Int("completed", progress.Completed),
		slog.Int("total", progress.Total),
		slog.Float64("percentDone", progress.PercentDone))
}

// HandleError is the dispatcher error sink.
func (p *Pipeline) HandleError(message string) {
	p.logger.Error("backend reported error", slog.String("message", message))
}

// reportTrend logs trend changes on a tracked series. Caller holds p.mu.
func (p *Pipeline) reportTrend(series *analysis.TrackedSeries) {
	stats := series.Stats()
	if stats == nil {
		return
	}

	freq := series.Frequency()
	if prev, ok := p.trends[freq]; ok && prev == stats.Trend {
		return
	}
	p.trends[freq] = stats.Trend

	p.logger.Info("tracked frequency trend",
		slog.String("frequency", humanize.SI(freq, "Hz")),
		slog.String("trend", string(stats.Trend)),
		slog.Float64("mean", stats.Mean),
		slog.Float64("slope", stats.Slope))
}

// geoSample builds a geo-tagged power measurement from a sweep that carries
// receiver coordinates, using the strongest bin as the representative power.
func geoSample(sweep *spectrum.Sweep, ts time.Time) *spectrum.GeoSample {
	if sweep.Latitude == nil || sweep.Longitude == nil {
		return nil
	}

	n := sweep.Len()
	if n == 0 {
		return nil
	}

	maxPower := sweep.Powers[0]
	for _, power := range sweep.Powers[1:n] {
		if power > maxPower {
			maxPower = power
		}
	}

	return &spectrum.GeoSample{
		Latitude:  sweep.Latitude,
		Longitude: sweep.Longitude,
		Power:     &maxPower,
		Timestamp: ts,
	}
}
