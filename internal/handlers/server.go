// Package handlers exposes the attendance system over HTTP JSON.
//
// The central type is Server. It holds every dependency a handler needs so
// tests can build independent instances over their own database.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/Elizabethomito/igaratrack/internal/attendance"
	"github.com/Elizabethomito/igaratrack/internal/ceremony"
	"github.com/Elizabethomito/igaratrack/internal/challenge"
	"github.com/Elizabethomito/igaratrack/internal/middleware"
	"github.com/Elizabethomito/igaratrack/internal/models"
	"github.com/Elizabethomito/igaratrack/internal/store"
)

// maxBody caps request bodies. An attestation is a few KB at most.
const maxBody = 64 << 10

// Server holds shared dependencies for all handlers.
type Server struct {
	Store      *store.Store
	Ceremonies *ceremony.Service
	Attendance *attendance.Service
	Secret     string
	Log        *slog.Logger
	// TrustProxy makes ClientIP honour X-Forwarded-For.
	TrustProxy bool

	validate *validator.Validate
}

// NewServer wires a Server. log may be nil.
func NewServer(st *store.Store, ceremonies *ceremony.Service, att *attendance.Service, secret string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Store:      st,
		Ceremonies: ceremonies,
		Attendance: att,
		Secret:     secret,
		Log:        log,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("bad request")

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{challenge.ErrInvalidSession, http.StatusBadRequest, "InvalidSession"},
	{challenge.ErrChallengeExpired, http.StatusBadRequest, "ChallengeExpired"},
	{ceremony.ErrTypeMismatch, http.StatusBadRequest, "TypeMismatch"},
	{ceremony.ErrChallengeMismatch, http.StatusBadRequest, "ChallengeMismatch"},
	{ceremony.ErrOriginMismatch, http.StatusBadRequest, "OriginMismatch"},
	{ceremony.ErrCredentialNotFound, http.StatusBadRequest, "CredentialNotFound"},
	{ceremony.ErrSignatureInvalid, http.StatusBadRequest, "SignatureInvalid"},
	{ceremony.ErrPossibleCloneDetected, http.StatusBadRequest, "PossibleCloneDetected"},
	{ceremony.ErrAttestationMalformed, http.StatusBadRequest, "AttestationMalformed"},
	{ceremony.ErrMalformedResponse, http.StatusBadRequest, "MalformedResponse"},
	{ceremony.ErrNoCredentials, http.StatusNotFound, "NoCredentials"},
	{ceremony.ErrTeacherNotFound, http.StatusNotFound, "TeacherNotFound"},
	{ceremony.ErrCredentialExists, http.StatusConflict, "CredentialExists"},
	{attendance.ErrAlreadyClockedIn, http.StatusBadRequest, "AlreadyClockedIn"},
	{attendance.ErrAlreadyClockedOut, http.StatusBadRequest, "AlreadyClockedOut"},
	{attendance.ErrNoOpenClockIn, http.StatusBadRequest, "NoOpenClockIn"},
	{attendance.ErrInvalidClock, http.StatusBadRequest, "InvalidTime"},
	{attendance.ErrTeacherNotFound, http.StatusNotFound, "TeacherNotFound"},
	{attendance.ErrTeacherInactive, http.StatusForbidden, "TeacherInactive"},
	{errBadRequest, http.StatusBadRequest, "BadRequest"},
	{errInvalidLogin, http.StatusUnauthorized, "InvalidCredentials"},
	{store.ErrNotFound, http.StatusNotFound, "NotFound"},
	{store.ErrConflict, http.StatusConflict, "Conflict"},
}

// classify maps err to an HTTP status and a stable reason code.
func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "ValidationFailed"
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "InternalError"
}

// respond writes v as JSON with the given HTTP status code.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// fail reports err to the client. Internal errors are logged and replaced
// with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) string {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	respond(w, status, errorResponse{Error: msg, Code: code})
	return code
}

// decode parses a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON", errBadRequest)
	}
	return s.validate.Struct(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", errBadRequest)
	}
	return id, nil
}

func queryTeacherID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("teacher_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: teacher_id required", errBadRequest)
	}
	return id, nil
}

// audit records an admin action. The change is already committed, so a
// failure is only logged.
func (s *Server) audit(r *http.Request, action, details string) {
	err := s.Store.Audit.Record(r.Context(), models.AuditEntry{
		UserType:  "admin",
		UserID:    middleware.GetAdminID(r.Context()),
		Action:    action,
		Details:   details,
		IPAddress: middleware.ClientIP(r),
	})
	if err != nil {
		s.Log.Error("audit write failed", "action", action, "err", err)
	}
}
