package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      backend_url,
                      channel,
                      config)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       backend_url,
       channel,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       backend_url,
       channel,
       config
FROM sessions
ORDER BY start_time`

	insertPeakSQL = `
INSERT INTO peaks (session_id,
                   timestamp,
                   frequency,
                   power,
                   bin_index,
                   prominence,
                   noise_floor,
                   snr,
                   known_band,
                   signal_type)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertBandStatsSQL = `
INSERT INTO band_stats (session_id,
                        timestamp,
                        band,
                        sample_count,
                        min_power,
                        max_power,
                        mean_power,
                        peak_freq,
                        peak_power,
                        occupancy,
                        active_channels,
                        noise_floor,
                        bandwidth)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertGeoSampleSQL = `
INSERT INTO geo_samples (session_id,
                         timestamp,
                         latitude,
                         longitude,
                         power)
VALUES (?, ?, ?, ?, ?)`

	selectGeoSamplesSQL = `
SELECT timestamp,
       latitude,
       longitude,
       power
FROM geo_samples
WHERE session_id = ?
ORDER BY timestamp`
)

//go:embed schema.sql
var initSchemaSQL string
