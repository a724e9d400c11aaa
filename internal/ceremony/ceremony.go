// Package ceremony verifies WebAuthn registration and authentication
// responses against the pending challenge and the stored credentials.
//
// Both ceremonies consume the session's challenge before looking at the
// response, so a failed attempt can never be retried with the same challenge.
package ceremony

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	"github.com/Elizabethomito/igaratrack/internal/challenge"
	"github.com/Elizabethomito/igaratrack/internal/models"
	"github.com/Elizabethomito/igaratrack/internal/store"
)

// Config identifies the relying party.
type Config struct {
	RPID     string
	RPName   string
	RPOrigin string
	// Timeout is the hint passed to the browser.
	Timeout time.Duration
}

// CredentialStore is the slice of store.Credentials the verifier needs.
type CredentialStore interface {
	FindByTeacher(ctx context.Context, teacherID int64) ([]models.Credential, error)
	FindForTeacher(ctx context.Context, teacherID int64, credentialID []byte) (*models.Credential, error)
	Insert(ctx context.Context, c *models.Credential) error
	BumpCounter(ctx context.Context, id int64, newCount uint32, usedAt time.Time) error
}

// TeacherLookup resolves a teacher by id.
type TeacherLookup interface {
	Get(ctx context.Context, id int64) (*models.Teacher, error)
}

// RegistrationOptions is what the browser needs for navigator.credentials.create.
type RegistrationOptions struct {
	Challenge   []byte
	UserHandle  []byte
	UserName    string
	DisplayName string
	// Exclude lists credential ids the teacher already owns.
	Exclude [][]byte
}

// AuthenticationOptions is what the browser needs for navigator.credentials.get.
type AuthenticationOptions struct {
	Challenge []byte
	Allow     []models.Credential
}

// Service runs both ceremonies.
type Service struct {
	cfg        Config
	challenges *challenge.Manager
	creds      CredentialStore
	teachers   TeacherLookup
	rpIDHash   [32]byte
	now        func() time.Time
}

// NewService returns a verifier for the relying party described by cfg.
//
// LEARNING NOTE: the moving parts of a ceremony
// ────────────────────────────────────────────────────────────────────
// A WebAuthn ceremony is two HTTP round trips. Begin* asks the challenge
// Manager for 32 random bytes bound to the caller's session, teacher and
// purpose, and hands them to the browser. The authenticator signs over
// those bytes, and Finish* takes them back out of the Manager before it
// reads anything the browser sent:
//
//	Begin*  -> challenges.Issue   (one pending record per session)
//	Finish* -> challenges.Consume (record deleted, then compared)
//
// creds stores the public keys and signature counters; teachers is only
// used to name the user during registration. The RP ID hash is computed
// once here because every response's authenticator data is compared with it.
func NewService(cfg Config, challenges *challenge.Manager, creds CredentialStore, teachers TeacherLookup) *Service {
	return &Service{
		cfg:        cfg,
		challenges: challenges,
		creds:      creds,
		teachers:   teachers,
		rpIDHash:   sha256.Sum256([]byte(cfg.RPID)),
		now:        time.Now,
	}
}

// Config returns the relying party configuration.
func (s *Service) Config() Config { return s.cfg }

// Discard drops the session's pending challenge. Callers use it when a
// ceremony request is rejected before it reaches a Finish method.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	return s.challenges.Discard(ctx, sessionID)
}

// UserHandle derives the opaque WebAuthn user id for a teacher. It is stable
// and carries no personal data.
func UserHandle(teacherID int64) []byte {
	sum := sha256.Sum256([]byte("igaratrack-teacher:" + strconv.FormatInt(teacherID, 10)))
	return sum[:16]
}

// BeginRegistration issues a register-purpose challenge for the teacher.
func (s *Service) BeginRegistration(ctx context.Context, sessionID string, teacherID int64) (*RegistrationOptions, error) {
	t, err := s.teachers.Get(ctx, teacherID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, wrap("begin registration", ErrTeacherNotFound)
	}
	if err != nil {
		return nil, err
	}
	existing, err := s.creds.FindByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	c, err := s.challenges.Issue(ctx, sessionID, teacherID, models.PurposeRegister)
	if err != nil {
		return nil, wrap("begin registration", err)
	}

	opts := &RegistrationOptions{
		Challenge:   c,
		UserHandle:  UserHandle(teacherID),
		UserName:    userName(t),
		DisplayName: t.Name,
	}
	for _, cred := range existing {
		opts.Exclude = append(opts.Exclude, cred.CredentialID)
	}
	return opts, nil
}

func userName(t *models.Teacher) string {
	switch {
	case t.EmployeeID != "":
		return t.EmployeeID
	case t.Email != "":
		return t.Email
	default:
		return "teacher-" + strconv.FormatInt(t.ID, 10)
	}
}

// FinishRegistration verifies an attestation response and stores the new
// credential. The attestation statement must verify for its format, but
// trust chains are not evaluated, so self and "none" attestation are accepted.
func (s *Service) FinishRegistration(ctx context.Context, sessionID string, teacherID int64, body []byte) (*models.Credential, error) {
	const op = "finish registration"

	expected, err := s.challenges.Consume(ctx, sessionID, teacherID, models.PurposeRegister)
	if err != nil {
		return nil, wrap(op, err)
	}

	var raw protocol.CredentialCreationResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrap(op, ErrMalformedResponse)
	}
	parsed, err := raw.Parse()
	if err != nil {
		return nil, wrap(op, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	client := parsed.Response.CollectedClientData
	if err := s.checkClientData(client, protocol.CreateCeremony, expected); err != nil {
		return nil, wrap(op, err)
	}

	authData := parsed.Response.AttestationObject.AuthData
	if !bytes.Equal(authData.RPIDHash, s.rpIDHash[:]) {
		return nil, wrap(op, ErrOriginMismatch)
	}
	if !authData.Flags.UserPresent() {
		return nil, wrap(op, fmt.Errorf("%w: user not present", ErrMalformedResponse))
	}
	if !authData.Flags.HasAttestedCredentialData() || len(authData.AttData.CredentialID) == 0 {
		return nil, wrap(op, ErrAttestationMalformed)
	}
	if _, err := webauthncose.ParsePublicKey(authData.AttData.CredentialPublicKey); err != nil {
		return nil, wrap(op, fmt.Errorf("%w: %v", ErrAttestationMalformed, err))
	}
	// No metadata provider: the statement and its signature are checked,
	// the certificate chain is not.
	clientDataHash := sha256.Sum256(parsed.Raw.AttestationResponse.ClientDataJSON)
	if err := parsed.Response.AttestationObject.VerifyAttestation(clientDataHash[:], nil); err != nil {
		return nil, wrap(op, fmt.Errorf("%w: %v", ErrAttestationMalformed, err))
	}

	format := parsed.Response.AttestationObject.Format
	if format == "" {
		format = "none"
	}
	cred := &models.Credential{
		TeacherID:       teacherID,
		CredentialID:    authData.AttData.CredentialID,
		PublicKey:       authData.AttData.CredentialPublicKey,
		AAGUID:          authData.AttData.AAGUID,
		AttestationType: format,
		SignCount:       authData.Counter,
	}
	if err := s.creds.Insert(ctx, cred); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, wrap(op, ErrCredentialExists)
		}
		return nil, err
	}
	return cred, nil
}

// BeginAuthentication issues an authenticate-purpose challenge listing the
// teacher's credentials.
func (s *Service) BeginAuthentication(ctx context.Context, sessionID string, teacherID int64) (*AuthenticationOptions, error) {
	creds, err := s.creds.FindByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		// Drop any stale challenge so a later ceremony cannot pick it up.
		_ = s.challenges.Discard(ctx, sessionID)
		return nil, wrap("begin authentication", ErrNoCredentials)
	}
	c, err := s.challenges.Issue(ctx, sessionID, teacherID, models.PurposeAuthenticate)
	if err != nil {
		return nil, wrap("begin authentication", err)
	}
	return &AuthenticationOptions{Challenge: c, Allow: creds}, nil
}

// FinishAuthentication verifies an assertion and advances the credential's
// signature counter. It returns the credential with its new counter.
func (s *Service) FinishAuthentication(ctx context.Context, sessionID string, teacherID int64, body []byte) (*models.Credential, error) {
	const op = "finish authentication"

	expected, err := s.challenges.Consume(ctx, sessionID, teacherID, models.PurposeAuthenticate)
	if err != nil {
		return nil, wrap(op, err)
	}

	var raw protocol.CredentialAssertionResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrap(op, ErrMalformedResponse)
	}
	parsed, err := raw.Parse()
	if err != nil {
		return nil, wrap(op, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	if err := s.checkClientData(parsed.Response.CollectedClientData, protocol.AssertCeremony, expected); err != nil {
		return nil, wrap(op, err)
	}

	authData := parsed.Response.AuthenticatorData
	if !bytes.Equal(authData.RPIDHash, s.rpIDHash[:]) {
		return nil, wrap(op, ErrOriginMismatch)
	}
	if !authData.Flags.UserPresent() {
		return nil, wrap(op, fmt.Errorf("%w: user not present", ErrMalformedResponse))
	}

	cred, err := s.creds.FindForTeacher(ctx, teacherID, parsed.RawID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, wrap(op, ErrCredentialNotFound)
	}
	if err != nil {
		return nil, err
	}

	key, err := webauthncose.ParsePublicKey(cred.PublicKey)
	if err != nil {
		return nil, wrap(op, fmt.Errorf("%w: stored key: %v", ErrSignatureInvalid, err))
	}
	clientDataHash := sha256.Sum256(parsed.Raw.AssertionResponse.ClientDataJSON)
	signed := make([]byte, 0, len(parsed.Raw.AssertionResponse.AuthenticatorData)+len(clientDataHash))
	signed = append(signed, parsed.Raw.AssertionResponse.AuthenticatorData...)
	signed = append(signed, clientDataHash[:]...)
	ok, err := webauthncose.VerifySignature(key, signed, parsed.Response.Signature)
	if err != nil || !ok {
		return nil, wrap(op, ErrSignatureInvalid)
	}

	if counterRegressed(cred.SignCount, authData.Counter) {
		return nil, wrap(op, ErrPossibleCloneDetected)
	}
	now := s.now()
	if err := s.creds.BumpCounter(ctx, cred.ID, authData.Counter, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, wrap(op, ErrPossibleCloneDetected)
		}
		return nil, err
	}
	cred.SignCount = authData.Counter
	cred.LastUsed = &now
	return cred, nil
}

// counterRegressed reports whether a use with counter next after stored
// indicates a cloned authenticator. Authenticators that never count report 0
// every time, which is allowed.
func counterRegressed(stored, next uint32) bool {
	if stored == 0 && next == 0 {
		return false
	}
	return next <= stored
}

func (s *Service) checkClientData(c protocol.CollectedClientData, want protocol.CeremonyType, expected []byte) error {
	if c.Type != want {
		return ErrTypeMismatch
	}
	got, err := decodeChallenge(c.Challenge)
	if err != nil || subtle.ConstantTimeCompare(got, expected) != 1 {
		return ErrChallengeMismatch
	}
	if c.Origin != s.cfg.RPOrigin {
		return ErrOriginMismatch
	}
	return nil
}

// decodeChallenge accepts the base64url form browsers put in clientDataJSON
// and falls back to standard base64.
func decodeChallenge(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
