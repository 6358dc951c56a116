package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "sigstream.db"))
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func ptr(v float64) *float64 { return &v }

func TestSqliteStore_CreateAndReadSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := map[string]any{"fftSize": 4096}
	id, err := store.CreateSession(ctx, "ws://backend.test", "/channels/vhf", cfg)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if id == 0 {
		t.Fatal("CreateSession() returned zero ID")
	}

	session, err := store.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if session == nil {
		t.Fatal("Session() returned nil for existing session")
	}
	if session.BackendURL != "ws://backend.test" {
		t.Errorf("BackendURL = %q, want %q", session.BackendURL, "ws://backend.test")
	}
	if session.Channel != "/channels/vhf" {
		t.Errorf("Channel = %q, want %q", session.Channel, "/channels/vhf")
	}
	if session.Config == nil || *session.Config != `{"fftSize":4096}` {
		t.Errorf("Config = %v, want fftSize JSON", session.Config)
	}
}

func TestSqliteStore_SessionNotFound(t *testing.T) {
	store := newTestStore(t)

	// Force schema creation so the read connection has a database to open.
	if _, err := store.CreateSession(context.Background(), "ws://backend.test", "/channels/vhf", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	session, err := store.Session(context.Background(), 9999)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if session != nil {
		t.Errorf("Session() = %+v, want nil for missing ID", session)
	}
}

func TestSqliteStore_SessionsOrderedByStartTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateSession(ctx, "ws://backend.test", "/channels/a", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	second, err := store.CreateSession(ctx, "ws://backend.test", "/channels/b", "raw config")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Sessions() returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != first || sessions[1].ID != second {
		t.Errorf("Sessions() order = [%d, %d], want [%d, %d]", sessions[0].ID, sessions[1].ID, first, second)
	}
	if sessions[0].Config != nil {
		t.Errorf("first session Config = %v, want nil", sessions[0].Config)
	}
	if sessions[1].Config == nil || *sessions[1].Config != "raw config" {
		t.Errorf("second session Config = %v, want %q", sessions[1].Config, "raw config")
	}
}

func TestSqliteStore_StorePeaks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "ws://backend.test", "/channels/vhf", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	peaks := []spectrum.Peak{
		{Frequency: 100.1e6, Power: -60, BinIndex: 12, Prominence: 40, NoiseFloor: -100, SNR: 40, KnownBand: "FM Broadcast", Type: "broadcast"},
		{Frequency: 433.9e6, Power: -72, BinIndex: 80, Prominence: 28, NoiseFloor: -100, SNR: 28, Type: "unknown"},
	}
	if err = store.StorePeaks(ctx, id, time.Now(), peaks); err != nil {
		t.Fatalf("StorePeaks() error = %v", err)
	}

	// Empty slices are a no-op, not an error.
	if err = store.StorePeaks(ctx, id, time.Now(), nil); err != nil {
		t.Errorf("StorePeaks() with no peaks error = %v", err)
	}
}

func TestSqliteStore_StoreBandStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "ws://backend.test", "/channels/vhf", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	stats := []*spectrum.BandStats{
		{
			Band:        "FM Broadcast",
			SampleCount: 3,
			Min:         -90, Max: -70, Mean: -81.67,
			PeakFreq: 98.5e6, PeakPower: -70,
			Occupancy: 66.67, ActiveChannels: 2,
			NoiseFloor: -90, Bandwidth: 20e6,
		},
	}
	if err = store.StoreBandStats(ctx, id, time.Now(), stats); err != nil {
		t.Fatalf("StoreBandStats() error = %v", err)
	}
}

func TestSqliteStore_GeoSamplesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "ws://backend.test", "/channels/vhf", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	base := time.Now().Add(-time.Minute)
	samples := []spectrum.GeoSample{
		{Latitude: ptr(-33.865), Longitude: ptr(151.209), Power: ptr(-75), Timestamp: base},
		{Latitude: ptr(-33.866), Longitude: ptr(151.210), Power: ptr(-80), Timestamp: base.Add(time.Second)},
		{Latitude: ptr(-33.867), Power: ptr(-70), Timestamp: base.Add(2 * time.Second)}, // no longitude, skipped
	}
	if err = store.StoreGeoSamples(ctx, id, samples); err != nil {
		t.Fatalf("StoreGeoSamples() error = %v", err)
	}

	got, err := store.GeoSamples(ctx, id)
	if err != nil {
		t.Fatalf("GeoSamples() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GeoSamples() returned %d samples, want 2", len(got))
	}
	if *got[0].Power != -75 || *got[1].Power != -80 {
		t.Errorf("GeoSamples() powers = [%v, %v], want [-75, -80]", *got[0].Power, *got[1].Power)
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("GeoSamples() not ordered by timestamp")
	}
}
