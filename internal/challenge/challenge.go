// Package challenge holds the one outstanding WebAuthn challenge per
// ceremony session.
//
// A record is bound to one teacher and one purpose. Consume always deletes
// the record before checking anything, so a challenge can be used at most
// once whatever the outcome of the ceremony that consumed it.
package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// ChallengeSize is the number of random bytes in a challenge.
const ChallengeSize = 32

var (
	// ErrInvalidSession means there was no pending challenge for the session,
	// or it was issued for another teacher or purpose.
	ErrInvalidSession = errors.New("invalid session")
	// ErrChallengeExpired means the pending challenge outlived its TTL.
	ErrChallengeExpired = errors.New("challenge expired")
)

// Record is the pending challenge state for one session.
type Record struct {
	Challenge []byte         `json:"challenge"`
	TeacherID int64          `json:"teacher_id"`
	Purpose   models.Purpose `json:"purpose"`
	IssuedAt  time.Time      `json:"issued_at"`
}

// Store keeps at most one Record per session id.
type Store interface {
	// Put stores rec for sessionID, replacing any previous record.
	Put(ctx context.Context, sessionID string, rec Record) error
	// Take removes and returns the record for sessionID. ok is false when
	// there was none.
	Take(ctx context.Context, sessionID string) (rec Record, ok bool, err error)
}

// Manager issues and consumes challenges over a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager returns a Manager whose challenges expire after ttl.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the configured challenge lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue generates a fresh challenge for the session, replacing any prior one.
func (m *Manager) Issue(ctx context.Context, sessionID string, teacherID int64, purpose models.Purpose) ([]byte, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	c := make([]byte, ChallengeSize)
	if _, err := rand.Read(c); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	rec := Record{Challenge: c, TeacherID: teacherID, Purpose: purpose, IssuedAt: m.now()}
	if err := m.store.Put(ctx, sessionID, rec); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	return c, nil
}

// Consume removes the session's pending challenge and returns it if it was
// issued to teacherID for purpose and has not expired.
func (m *Manager) Consume(ctx context.Context, sessionID string, teacherID int64, purpose models.Purpose) ([]byte, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	rec, ok, err := m.store.Take(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("take challenge: %w", err)
	}
	if !ok || rec.TeacherID != teacherID || rec.Purpose != purpose {
		return nil, ErrInvalidSession
	}
	if m.ttl > 0 && m.now().Sub(rec.IssuedAt) > m.ttl {
		return nil, ErrChallengeExpired
	}
	return rec.Challenge, nil
}

// Discard drops any pending challenge for the session.
func (m *Manager) Discard(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, _, err := m.store.Take(ctx, sessionID)
	return err
}
