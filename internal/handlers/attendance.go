package handlers

import (
	"net/http"

	"github.com/Elizabethomito/igaratrack/internal/metrics"
	"github.com/Elizabethomito/igaratrack/internal/middleware"
	"github.com/Elizabethomito/igaratrack/internal/models"
)

// ClockIn handles POST /api/attendance/clock-in
//
// The assertion is verified first so the pending challenge is spent no
// matter how the attendance step turns out.
func (s *Server) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req models.CeremonyRequest
	if err := s.decodeCeremony(w, r, &req, "finish authentication"); err != nil {
		s.ceremonyFailed(w, r, metrics.CeremonyAuthenticate, req.TeacherID, err)
		return
	}
	if !s.verifyAssertion(w, r, &req) {
		return
	}

	res, err := s.Attendance.ClockIn(r.Context(), req.TeacherID, middleware.ClientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, models.ClockResponse{
		Success:   true,
		Message:   res.Message,
		Status:    string(res.Status),
		IsHoliday: res.IsHoliday,
		NoLessons: res.NoLessons,
	})
}

// ClockOut handles POST /api/attendance/clock-out
func (s *Server) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req models.CeremonyRequest
	if err := s.decodeCeremony(w, r, &req, "finish authentication"); err != nil {
		s.ceremonyFailed(w, r, metrics.CeremonyAuthenticate, req.TeacherID, err)
		return
	}
	if !s.verifyAssertion(w, r, &req) {
		return
	}

	res, err := s.Attendance.ClockOut(r.Context(), req.TeacherID, middleware.ClientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, models.ClockResponse{
		Success: true,
		Message: res.Message,
		Status:  string(res.Status),
	})
}

// Today handles GET /api/attendance/today?teacher_id=
func (s *Server) Today(w http.ResponseWriter, r *http.Request) {
	teacherID, err := queryTeacherID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.Attendance.Timeline(r.Context(), teacherID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, models.TodayResponse{Success: true, Attendance: entries})
}
