package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Admins persists operator accounts.
type Admins struct {
	db *sql.DB
}

// Create inserts an admin; a taken username yields ErrConflict.
func (r *Admins) Create(ctx context.Context, a *models.Admin) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (username, password_hash, email, created_at) VALUES (?, ?, ?, ?)`,
		a.Username, a.PasswordHash, a.Email, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	a.ID, a.CreatedAt = id, now
	return nil
}

// GetByUsername returns the admin with the given username or ErrNotFound.
func (r *Admins) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, created_at FROM admins WHERE username = ?`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}
