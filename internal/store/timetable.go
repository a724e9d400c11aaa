package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Timetable persists weekly lesson entries.
type Timetable struct {
	db *sql.DB
}

const timetableColumns = `id, teacher_id, day_of_week, lesson_start, lesson_end, subject, created_at`

func (r *Timetable) query(ctx context.Context, q string, args ...any) ([]models.TimetableEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query timetable: %w", err)
	}
	defer rows.Close()

	entries := []models.TimetableEntry{}
	for rows.Next() {
		var e models.TimetableEntry
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.DayOfWeek, &e.LessonStart, &e.LessonEnd,
			&e.Subject, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timetable: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ForTeacherDay returns a teacher's lessons on an ISO weekday, earliest first.
func (r *Timetable) ForTeacherDay(ctx context.Context, teacherID int64, dayOfWeek int) ([]models.TimetableEntry, error) {
	return r.query(ctx,
		`SELECT `+timetableColumns+` FROM lesson_timetables
		 WHERE teacher_id = ? AND day_of_week = ? ORDER BY lesson_start, id`,
		teacherID, dayOfWeek)
}

// ForTeacher returns a teacher's whole week ordered by day then start.
func (r *Timetable) ForTeacher(ctx context.Context, teacherID int64) ([]models.TimetableEntry, error) {
	return r.query(ctx,
		`SELECT `+timetableColumns+` FROM lesson_timetables
		 WHERE teacher_id = ? ORDER BY day_of_week, lesson_start, id`, teacherID)
}

// ActiveForDay returns every active teacher's lessons on an ISO weekday.
func (r *Timetable) ActiveForDay(ctx context.Context, dayOfWeek int) ([]models.TimetableEntry, error) {
	return r.query(ctx,
		`SELECT lt.id, lt.teacher_id, lt.day_of_week, lt.lesson_start, lt.lesson_end, lt.subject, lt.created_at
		 FROM lesson_timetables lt
		 JOIN teachers t ON t.id = lt.teacher_id
		 WHERE t.status = 'active' AND lt.day_of_week = ?
		 ORDER BY lt.teacher_id, lt.lesson_start`, dayOfWeek)
}

// Create inserts a lesson. Overlapping lessons are accepted.
func (r *Timetable) Create(ctx context.Context, e *models.TimetableEntry) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO lesson_timetables (teacher_id, day_of_week, lesson_start, lesson_end, subject, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.TeacherID, e.DayOfWeek, e.LessonStart, e.LessonEnd, e.Subject, now)
	if err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	e.ID, e.CreatedAt = id, now
	return nil
}

// Delete removes a lesson entry or returns ErrNotFound.
func (r *Timetable) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lesson_timetables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
