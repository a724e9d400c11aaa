// Package db handles SQLite initialisation and schema migrations.
//
// The pure-Go modernc.org/sqlite driver is used so the server cross-compiles
// without CGo. The driver registers itself under the name "sqlite".
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at dsn and runs all migrations.
//
// Recommended DSN formats:
//   - Production file: "igaratrack.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
//   - Tests:           "file:testXYZ?mode=memory&cache=shared&_pragma=foreign_keys(1)"
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// migrate runs each DDL statement in the schema individually; the driver
// only executes the first statement of a multi-statement Exec.
func migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// Tables lists every table the schema creates, in creation order.
var Tables = []string{
	"admins",
	"teachers",
	"webauthn_credentials",
	"lesson_timetables",
	"public_holidays",
	"attendance_logs",
	"audit_logs",
}

// schema notes:
//
//	webauthn_credentials: credential_id is globally UNIQUE; sign_count only
//	  moves forward (enforced by the UPDATE predicate in
//	  store.Credentials.BumpCounter).
//
//	lesson_timetables: no overlap constraint; overlapping lessons are allowed.
//
//	attendance_logs: UNIQUE(teacher_id, lesson_date, lesson_start_time) is what
//	  makes clock-in and the nightly pre-generation race-free. Both go through
//	  INSERT ... ON CONFLICT instead of check-then-insert.
const schema = `
CREATE TABLE IF NOT EXISTS admins (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    email         TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS teachers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    email       TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    employee_id TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','inactive')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS webauthn_credentials (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    teacher_id    INTEGER NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
    credential_id BLOB NOT NULL UNIQUE,
    public_key    BLOB NOT NULL,
    aaguid        BLOB,
    attestation   TEXT NOT NULL DEFAULT 'none',
    sign_count    INTEGER NOT NULL DEFAULT 0,
    last_used     DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_webauthn_credentials_teacher ON webauthn_credentials(teacher_id);

CREATE TABLE IF NOT EXISTS lesson_timetables (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    teacher_id   INTEGER NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
    day_of_week  INTEGER NOT NULL CHECK(day_of_week BETWEEN 1 AND 7),
    lesson_start TEXT NOT NULL,
    lesson_end   TEXT NOT NULL,
    subject      TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_lesson_timetables_teacher_day ON lesson_timetables(teacher_id, day_of_week);

CREATE TABLE IF NOT EXISTS public_holidays (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT NOT NULL,
    holiday_date TEXT NOT NULL,
    end_date     TEXT,
    is_recurring INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attendance_logs (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    teacher_id        INTEGER NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
    lesson_date       TEXT NOT NULL,
    lesson_start_time TEXT NOT NULL,
    lesson_end_time   TEXT NOT NULL,
    clock_in_time     DATETIME,
    clock_out_time    DATETIME,
    clock_in_status   TEXT CHECK(clock_in_status IN ('early','on_time','late','very_late')),
    clock_out_status  TEXT CHECK(clock_out_status IN ('on_time','late')),
    attendance_status TEXT NOT NULL DEFAULT 'absent'
                          CHECK(attendance_status IN ('absent','present','missed')),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (teacher_id, lesson_date, lesson_start_time)
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_type  TEXT NOT NULL,
    user_id    INTEGER NOT NULL,
    action     TEXT NOT NULL,
    details    TEXT NOT NULL DEFAULT '',
    ip_address TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
