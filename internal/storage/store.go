// Package storage records capture sessions and their derived analytics in a
// local sqlite database, for later inspection and offline heatmap rendering.
package storage

import (
	"context"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

// Session describes one recorded capture run against a backend.
type Session struct {
	ID         int64     `json:"id"`
	StartTime  time.Time `json:"startTime"`
	BackendURL string    `json:"backendURL"`
	Channel    string    `json:"channel"`
	Config     *string   `json:"config,omitempty"` // Stream configuration as JSON, if provided
}

// Store persists capture sessions and derived analytics. Writes within one
// call are atomic.
type Store interface {
	// CreateSession registers a new capture run and returns its identifier.
	// Config may be a string, []byte or any JSON-serializable value.
	CreateSession(ctx context.Context, backendURL, channel string, config any) (int64, error)

	// Session retrieves a capture run by ID; nil when not found.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions lists all capture runs ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StorePeaks records the peaks detected in one sweep, in a single
	// transaction.
	StorePeaks(ctx context.Context, sessionID int64, ts time.Time, peaks []spectrum.Peak) error

	// StoreBandStats records per-band summaries of one sweep.
	StoreBandStats(ctx context.Context, sessionID int64, ts time.Time, stats []*spectrum.BandStats) error

	// StoreGeoSamples records geo-tagged power measurements. Samples
	// missing coordinates or power are skipped.
	StoreGeoSamples(ctx context.Context, sessionID int64, samples []spectrum.GeoSample) error

	// GeoSamples returns all geo samples of a session, oldest first.
	GeoSamples(ctx context.Context, sessionID int64) ([]spectrum.GeoSample, error)

	// Close releases database resources. Safe to call more than once.
	Close() error
}
