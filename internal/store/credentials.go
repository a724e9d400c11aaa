package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Credentials persists WebAuthn public keys. Rows are append-only apart
// from the signature counter and last_used stamp.
type Credentials struct {
	db *sql.DB
}

const credentialColumns = `id, teacher_id, credential_id, public_key, aaguid, attestation, sign_count, last_used, created_at`

func scanCredential(s scanner) (*models.Credential, error) {
	var (
		c        models.Credential
		count    int64
		lastUsed sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.TeacherID, &c.CredentialID, &c.PublicKey, &c.AAGUID,
		&c.AttestationType, &count, &lastUsed, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.SignCount = uint32(count)
	c.LastUsed = nullTimePtr(lastUsed)
	return &c, nil
}

// FindByTeacher returns every credential registered to the teacher.
func (r *Credentials) FindByTeacher(ctx context.Context, teacherID int64) ([]models.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM webauthn_credentials WHERE teacher_id = ? ORDER BY id`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}
	defer rows.Close()

	creds := []models.Credential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *c)
	}
	return creds, rows.Err()
}

// FindForTeacher looks up one credential id scoped to its owner.
func (r *Credentials) FindForTeacher(ctx context.Context, teacherID int64, credentialID []byte) (*models.Credential, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM webauthn_credentials WHERE teacher_id = ? AND credential_id = ?`,
		teacherID, credentialID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return c, nil
}

// Insert stores a newly registered credential. A reused credential id
// yields ErrConflict.
func (r *Credentials) Insert(ctx context.Context, c *models.Credential) error {
	now := time.Now().UTC()
	if c.AttestationType == "" {
		c.AttestationType = "none"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO webauthn_credentials (teacher_id, credential_id, public_key, aaguid, attestation, sign_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.TeacherID, c.CredentialID, c.PublicKey, c.AAGUID, c.AttestationType, int64(c.SignCount), now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	c.ID, c.CreatedAt = id, now
	return nil
}

// BumpCounter records a successful use. The counter may only move forward;
// the single exception is an authenticator that never counts (both values 0).
// A write that would move it backwards, including one that lost a race with
// a concurrent use of the same credential, returns ErrConflict.
func (r *Credentials) BumpCounter(ctx context.Context, id int64, newCount uint32, usedAt time.Time) error {
	n64 := int64(newCount)
	res, err := r.db.ExecContext(ctx,
		`UPDATE webauthn_credentials SET sign_count = ?, last_used = ?
		 WHERE id = ? AND (sign_count < ? OR (sign_count = 0 AND ? = 0))`,
		n64, usedAt.UTC(), id, n64, n64)
	if err != nil {
		return fmt.Errorf("bump counter: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return fmt.Errorf("bump counter: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
