package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Holidays persists public holiday ranges.
type Holidays struct {
	db *sql.DB
}

// Covers reports whether date (YYYY-MM-DD) falls inside any holiday range.
// ISO dates compare correctly as text.
func (r *Holidays) Covers(ctx context.Context, date string) (bool, error) {
	var hit bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM public_holidays
		     WHERE holiday_date <= ? AND COALESCE(end_date, holiday_date) >= ?)`,
		date, date,
	).Scan(&hit)
	if err != nil {
		return false, fmt.Errorf("holiday lookup: %w", err)
	}
	return hit, nil
}

// Create inserts a holiday.
func (r *Holidays) Create(ctx context.Context, h *models.Holiday) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO public_holidays (name, holiday_date, end_date, is_recurring, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.Name, h.HolidayDate, h.EndDate, h.IsRecurring, now)
	if err != nil {
		return fmt.Errorf("insert holiday: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert holiday: %w", err)
	}
	h.ID, h.CreatedAt = id, now
	return nil
}

// List returns all holidays, most recent first.
func (r *Holidays) List(ctx context.Context) ([]models.Holiday, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, holiday_date, end_date, is_recurring, created_at
		 FROM public_holidays ORDER BY holiday_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	holidays := []models.Holiday{}
	for rows.Next() {
		var (
			h   models.Holiday
			end sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.HolidayDate, &end, &h.IsRecurring, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		if end.Valid {
			h.EndDate = &end.String
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// Delete removes a holiday or returns ErrNotFound.
func (r *Holidays) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM public_holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
