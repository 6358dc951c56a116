package storage

import (
	"database/sql"
	"errors"
	"io"
)

// scanner abstracts *sql.Row and *sql.Rows for scanSession.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		session Session
		config  sql.NullString
	)
	if err := row.Scan(&session.ID, &session.StartTime, &session.BackendURL, &session.Channel, &config); err != nil {
		return nil, err
	}
	if config.Valid {
		session.Config = &config.String
	}
	return &session, nil
}

// closeWithError closes c and joins a close failure into *err, so deferred
// cleanup does not silently drop errors.
func closeWithError(c io.Closer, err *error) {
	if closeErr := c.Close(); closeErr != nil {
		*err = errors.Join(*err, closeErr)
	}
}

// rollbackWithError rolls the transaction back unless it was committed,
// joining a rollback failure into *err.
func rollbackWithError(tx *sql.Tx, err *error) {
	if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
		*err = errors.Join(*err, rollbackErr)
	}
}
