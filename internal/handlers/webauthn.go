package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/Elizabethomito/igaratrack/internal/ceremony"
	"github.com/Elizabethomito/igaratrack/internal/metrics"
	"github.com/Elizabethomito/igaratrack/internal/middleware"
	"github.com/Elizabethomito/igaratrack/internal/models"
)

// Challenges and credential ids travel as standard base64.
var b64 = base64.StdEncoding

// AuthChallenge handles POST /api/webauthn/auth-challenge
func (s *Server) AuthChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.TeacherRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.Attendance.RequireActive(r.Context(), req.TeacherID); err != nil {
		s.fail(w, r, err)
		return
	}

	opts, err := s.Ceremonies.BeginAuthentication(r.Context(), middleware.SessionID(r.Context()), req.TeacherID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cfg := s.Ceremonies.Config()
	resp := models.AuthChallengeResponse{
		Success:          true,
		Challenge:        b64.EncodeToString(opts.Challenge),
		RPID:             cfg.RPID,
		Timeout:          cfg.Timeout.Milliseconds(),
		AllowCredentials: make([]models.AllowedCredential, 0, len(opts.Allow)),
	}
	for _, c := range opts.Allow {
		resp.AllowCredentials = append(resp.AllowCredentials, models.AllowedCredential{
			ID:         b64.EncodeToString(c.CredentialID),
			Type:       "public-key",
			Transports: []string{"internal"},
		})
	}
	respond(w, http.StatusOK, resp)
}

// RegisterChallenge handles POST /api/admin/webauthn/register-challenge  (admin only)
func (s *Server) RegisterChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.TeacherRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	opts, err := s.Ceremonies.BeginRegistration(r.Context(), middleware.SessionID(r.Context()), req.TeacherID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cfg := s.Ceremonies.Config()
	respond(w, http.StatusOK, models.RegisterChallengeResponse{
		Success:         true,
		Challenge:       b64.EncodeToString(opts.Challenge),
		RPID:            cfg.RPID,
		RPName:          cfg.RPName,
		UserID:          b64.EncodeToString(opts.UserHandle),
		UserName:        opts.UserName,
		UserDisplayName: opts.DisplayName,
		Timeout:         cfg.Timeout.Milliseconds(),
	})
}

// RegisterVerify handles POST /api/admin/webauthn/register-verify  (admin only)
func (s *Server) RegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req models.CeremonyRequest
	if err := s.decodeCeremony(w, r, &req, "finish registration"); err != nil {
		s.ceremonyFailed(w, r, metrics.CeremonyRegister, req.TeacherID, err)
		return
	}

	cred, err := s.Ceremonies.FinishRegistration(r.Context(), middleware.SessionID(r.Context()), req.TeacherID, req.Credential)
	if err != nil {
		s.ceremonyFailed(w, r, metrics.CeremonyRegister, req.TeacherID, err)
		return
	}
	metrics.RecordCeremony(metrics.CeremonyRegister, metrics.OutcomeSuccess)
	s.audit(r, "register_fingerprint", fmt.Sprintf("Registered credential %d for teacher %d", cred.ID, req.TeacherID))
	s.Log.Info("credential registered", "teacher_id", req.TeacherID, "credential", cred.ID)

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Fingerprint registered successfully",
	})
}

// decodeCeremony decodes the envelope of a finish request. When it is
// rejected the session's pending challenge is spent anyway, and the failure
// is reported as a malformed response.
func (s *Server) decodeCeremony(w http.ResponseWriter, r *http.Request, req *models.CeremonyRequest, op string) error {
	err := s.decode(w, r, req)
	if err == nil {
		return nil
	}
	if derr := s.Ceremonies.Discard(r.Context(), middleware.SessionID(r.Context())); derr != nil {
		return fmt.Errorf("discard challenge: %w", derr)
	}
	return &ceremony.Error{Op: op, Err: fmt.Errorf("%w: %v", ceremony.ErrMalformedResponse, err)}
}

// verifyAssertion finishes an authentication ceremony for a clock request.
// It reports false after writing the error response.
func (s *Server) verifyAssertion(w http.ResponseWriter, r *http.Request, req *models.CeremonyRequest) bool {
	_, err := s.Ceremonies.FinishAuthentication(r.Context(), middleware.SessionID(r.Context()), req.TeacherID, req.Credential)
	if err != nil {
		s.ceremonyFailed(w, r, metrics.CeremonyAuthenticate, req.TeacherID, err)
		return false
	}
	metrics.RecordCeremony(metrics.CeremonyAuthenticate, metrics.OutcomeSuccess)
	return true
}

func (s *Server) ceremonyFailed(w http.ResponseWriter, r *http.Request, kind string, teacherID int64, err error) {
	code := s.fail(w, r, err)
	metrics.RecordCeremony(kind, code)

	var cerr *ceremony.Error
	op := kind
	if errors.As(err, &cerr) {
		op = cerr.Op
	}
	s.Log.Warn("ceremony rejected", "op", op, "teacher_id", teacherID, "reason", code)
}
