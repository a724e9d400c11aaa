package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Teachers persists staff records.
type Teachers struct {
	db *sql.DB
}

const teacherColumns = `id, name, email, phone, employee_id, status, created_at, updated_at`

func scanTeacher(s scanner) (*models.Teacher, error) {
	var t models.Teacher
	if err := s.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.EmployeeID, &t.Status,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Get returns the teacher with the given id or ErrNotFound.
func (r *Teachers) Get(ctx context.Context, id int64) (*models.Teacher, error) {
	t, err := scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	return t, nil
}

// Create inserts a new active teacher and fills in its id.
func (r *Teachers) Create(ctx context.Context, t *models.Teacher) error {
	now := time.Now().UTC()
	if t.Status == "" {
		t.Status = models.TeacherActive
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO teachers (name, email, phone, employee_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Email, t.Phone, t.EmployeeID, t.Status, now, now)
	if err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	t.ID, t.CreatedAt, t.UpdatedAt = id, now, now
	return nil
}

// Update overwrites the editable fields of an existing teacher.
func (r *Teachers) Update(ctx context.Context, t *models.Teacher) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE teachers SET name = ?, email = ?, phone = ?, employee_id = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		t.Name, t.Email, t.Phone, t.EmployeeID, t.Status, now, t.ID)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}

// List returns every teacher ordered by name.
func (r *Teachers) List(ctx context.Context) ([]models.Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+teacherColumns+` FROM teachers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	teachers := []models.Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, *t)
	}
	return teachers, rows.Err()
}
