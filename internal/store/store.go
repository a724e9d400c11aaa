// Package store holds the SQL repositories the attendance core reads and writes.
//
// Repositories carry no business rules. Every mutation that has to be
// race-free is a single statement whose WHERE or ON CONFLICT clause encodes
// the precondition, so callers learn about a lost race from RowsAffected
// instead of from a separate existence check.
package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a guarded write matched no row or hit a
	// UNIQUE constraint.
	ErrConflict = errors.New("conflict")
)

// Store bundles every repository over one connection pool.
type Store struct {
	DB          *sql.DB
	Teachers    *Teachers
	Admins      *Admins
	Credentials *Credentials
	Timetable   *Timetable
	Holidays    *Holidays
	Logs        *AttendanceLogs
	Audit       *Audit
}

// New wires all repositories to db.
func New(db *sql.DB) *Store {
	return &Store{
		DB:          db,
		Teachers:    &Teachers{db: db},
		Admins:      &Admins{db: db},
		Credentials: &Credentials{db: db},
		Timetable:   &Timetable{db: db},
		Holidays:    &Holidays{db: db},
		Logs:        &AttendanceLogs{db: db},
		Audit:       &Audit{db: db},
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
