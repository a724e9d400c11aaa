package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// AttendanceLogs persists one row per (teacher, date, lesson start).
type AttendanceLogs struct {
	db *sql.DB
}

const logColumns = `id, teacher_id, lesson_date, lesson_start_time, lesson_end_time,
	clock_in_time, clock_out_time, clock_in_status, clock_out_status, attendance_status,
	created_at, updated_at`

func scanLog(s scanner) (*models.AttendanceLog, error) {
	var (
		l         models.AttendanceLog
		in, out   sql.NullTime
		inStatus  sql.NullString
		outStatus sql.NullString
	)
	if err := s.Scan(&l.ID, &l.TeacherID, &l.LessonDate, &l.LessonStartTime, &l.LessonEndTime,
		&in, &out, &inStatus, &outStatus, &l.AttendanceStatus, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.ClockInTime = nullTimePtr(in)
	l.ClockOutTime = nullTimePtr(out)
	if inStatus.Valid {
		st := models.ClockInStatus(inStatus.String)
		l.ClockInStatus = &st
	}
	if outStatus.Valid {
		st := models.ClockOutStatus(outStatus.String)
		l.ClockOutStatus = &st
	}
	return &l, nil
}

func (r *AttendanceLogs) list(ctx context.Context, q string, args ...any) ([]models.AttendanceLog, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	logs := []models.AttendanceLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// Get returns the row for one lesson slot or ErrNotFound.
func (r *AttendanceLogs) Get(ctx context.Context, key models.LessonKey) (*models.AttendanceLog, error) {
	l, err := scanLog(r.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE teacher_id = ? AND lesson_date = ? AND lesson_start_time = ?`,
		key.TeacherID, key.LessonDate, key.LessonStart))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return l, nil
}

// RecordClockIn sets the clock-in of a slot, creating the row if the nightly
// job has not. The statement only writes when the slot has no clock-in yet,
// so of any number of concurrent callers exactly one succeeds and the rest
// get ErrConflict.
func (r *AttendanceLogs) RecordClockIn(ctx context.Context, key models.LessonKey, lessonEnd string,
	at time.Time, status models.ClockInStatus) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_logs
		     (teacher_id, lesson_date, lesson_start_time, lesson_end_time,
		      clock_in_time, clock_in_status, attendance_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'absent', ?, ?)
		 ON CONFLICT (teacher_id, lesson_date, lesson_start_time) DO UPDATE SET
		     clock_in_time   = excluded.clock_in_time,
		     clock_in_status = excluded.clock_in_status,
		     updated_at      = excluded.updated_at
		 WHERE attendance_logs.clock_in_time IS NULL`,
		key.TeacherID, key.LessonDate, key.LessonStart, lessonEnd, at.UTC(), string(status), now, now)
	if err != nil {
		return fmt.Errorf("record clock-in: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return fmt.Errorf("record clock-in: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// LatestOpen returns the teacher's row for date with the latest lesson start
// that has a clock-in but no clock-out.
func (r *AttendanceLogs) LatestOpen(ctx context.Context, teacherID int64, date string) (*models.AttendanceLog, error) {
	l, err := scanLog(r.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE teacher_id = ? AND lesson_date = ?
		   AND clock_in_time IS NOT NULL AND clock_out_time IS NULL
		 ORDER BY lesson_start_time DESC LIMIT 1`,
		teacherID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find open attendance: %w", err)
	}
	return l, nil
}

// RecordClockOut closes an open row. A row that was closed in the meantime
// yields ErrConflict.
func (r *AttendanceLogs) RecordClockOut(ctx context.Context, id int64, at time.Time,
	status models.ClockOutStatus, overall models.AttendanceStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance_logs
		 SET clock_out_time = ?, clock_out_status = ?, attendance_status = ?, updated_at = ?
		 WHERE id = ? AND clock_out_time IS NULL`,
		at.UTC(), string(status), string(overall), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("record clock-out: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return fmt.Errorf("record clock-out: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// EnsureSlot creates an absent row for the slot unless one exists. It
// reports whether a row was inserted.
func (r *AttendanceLogs) EnsureSlot(ctx context.Context, key models.LessonKey, lessonEnd string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_logs
		     (teacher_id, lesson_date, lesson_start_time, lesson_end_time, attendance_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'absent', ?, ?)
		 ON CONFLICT (teacher_id, lesson_date, lesson_start_time) DO NOTHING`,
		key.TeacherID, key.LessonDate, key.LessonStart, lessonEnd, now, now)
	if err != nil {
		return false, fmt.Errorf("ensure slot: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return false, fmt.Errorf("ensure slot: %w", err)
	}
	return n > 0, nil
}

// ForTeacherDay returns a teacher's rows for date ordered by lesson start.
func (r *AttendanceLogs) ForTeacherDay(ctx context.Context, teacherID int64, date string) ([]models.AttendanceLog, error) {
	return r.list(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE teacher_id = ? AND lesson_date = ? ORDER BY lesson_start_time`,
		teacherID, date)
}

// ForDay returns every row for date.
func (r *AttendanceLogs) ForDay(ctx context.Context, date string) ([]models.AttendanceLog, error) {
	return r.list(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE lesson_date = ? ORDER BY teacher_id, lesson_start_time`, date)
}

// MarkMissed flips untouched absent rows dated before the cutoff to missed.
func (r *AttendanceLogs) MarkMissed(ctx context.Context, before string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance_logs SET attendance_status = 'missed', updated_at = ?
		 WHERE lesson_date < ? AND attendance_status = 'absent' AND clock_in_time IS NULL`,
		time.Now().UTC(), before)
	if err != nil {
		return 0, fmt.Errorf("mark missed: %w", err)
	}
	return affected(res)
}
