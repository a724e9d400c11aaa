package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Audit appends to the audit trail.
type Audit struct {
	db *sql.DB
}

// Record writes one audit entry.
func (r *Audit) Record(ctx context.Context, e models.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (user_type, user_id, action, details, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserType, e.UserID, e.Action, e.Details, e.IPAddress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

// Count returns the number of entries recorded for action.
func (r *Audit) Count(ctx context.Context, action string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE action = ?`, action).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit: %w", err)
	}
	return n, nil
}
