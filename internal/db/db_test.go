package db

import (
	"testing"
)

func TestOpen(t *testing.T) {
	path := t.TempDir() + "/test.db"

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for _, tbl := range Tables {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", tbl, err)
		}
	}

	// Migrations are IF NOT EXISTS, so reopening the same file is a no-op.
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	db2.Close()
}

func TestOpen_AttendanceKeyIsUnique(t *testing.T) {
	d, err := Open("file:testopen_unique?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO teachers (name) VALUES ('T')`); err != nil {
		t.Fatalf("insert teacher: %v", err)
	}
	insert := `INSERT INTO attendance_logs (teacher_id, lesson_date, lesson_start_time, lesson_end_time)
	           VALUES (1, '2025-03-03', '09:00:00', '10:00:00')`
	if _, err := d.Exec(insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := d.Exec(insert); err == nil {
		t.Fatal("expected UNIQUE violation on duplicate lesson slot")
	}
}
