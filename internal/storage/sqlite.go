package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

// SqliteStore implements Store on a local sqlite database. Connections are
// opened lazily: a WAL-mode writer for inserts and a separate read-only
// connection for queries.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store for the database at dbPath. The schema is
// initialized on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.dbPath))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.dbPath))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, backendURL, channel string, config any) (sessionID int64, err error) {
	var configData sql.NullString
	if config != nil {
		switch v := config.(type) {
		case string:
			configData = sql.NullString{String: v, Valid: true}

		case []byte:
			configData = sql.NullString{String: string(v), Valid: true}

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				return 0, fmt.Errorf("marshaling config: %w", err)
			}
			configData = sql.NullString{String: string(p), Valid: true}
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, time.Now().UTC(), backendURL, channel, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	if sessionID, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("getting session ID: %w", err)
	}
	return sessionID, nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (*Session, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	session, err := scanSession(db.QueryRowContext(ctx, selectSessionSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return session, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func (s *SqliteStore) StorePeaks(ctx context.Context, sessionID int64, ts time.Time, peaks []spectrum.Peak) (err error) {
	if len(peaks) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertPeakSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for i := range peaks {
		p := &peaks[i]

		knownBand := sql.NullString{String: p.KnownBand, Valid: p.KnownBand != ""}
		if _, err = stmt.ExecContext(ctx, sessionID, ts.UTC(), p.Frequency, p.Power, p.BinIndex,
			p.Prominence, p.NoiseFloor, p.SNR, knownBand, p.Type); err != nil {
			return fmt.Errorf("inserting peak: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SqliteStore) StoreBandStats(ctx context.Context, sessionID int64, ts time.Time, stats []*spectrum.BandStats) (err error) {
	if len(stats) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertBandStatsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, b := range stats {
		if _, err = stmt.ExecContext(ctx, sessionID, ts.UTC(), b.Band, b.SampleCount, b.Min, b.Max,
			b.Mean, b.PeakFreq, b.PeakPower, b.Occupancy, b.ActiveChannels, b.NoiseFloor, b.Bandwidth); err != nil {
			return fmt.Errorf("inserting band stats: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SqliteStore) StoreGeoSamples(ctx context.Context, sessionID int64, samples []spectrum.GeoSample) (err error) {
	if len(samples) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertGeoSampleSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for i := range samples {
		g := &samples[i]
		if !g.Valid() {
			continue
		}

		ts := g.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err = stmt.ExecContext(ctx, sessionID, ts.UTC(), *g.Latitude, *g.Longitude, *g.Power); err != nil {
			return fmt.Errorf("inserting geo sample: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SqliteStore) GeoSamples(ctx context.Context, sessionID int64) (samples []spectrum.GeoSample, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectGeoSamplesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying geo samples: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			ts            time.Time
			lat, lng, pwr float64
		)
		if err = rows.Scan(&ts, &lat, &lng, &pwr); err != nil {
			return nil, fmt.Errorf("scanning geo sample: %w", err)
		}
		samples = append(samples, spectrum.GeoSample{
			Latitude:  &lat,
			Longitude: &lng,
			Power:     &pwr,
			Timestamp: ts,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating geo samples: %w", err)
	}
	return samples, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
