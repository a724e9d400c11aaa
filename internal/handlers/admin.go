package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Elizabethomito/igaratrack/internal/attendance"
	"github.com/Elizabethomito/igaratrack/internal/auth"
	"github.com/Elizabethomito/igaratrack/internal/models"
	"github.com/Elizabethomito/igaratrack/internal/store"
)

var errInvalidLogin = errors.New("invalid username or password")

// Login handles POST /api/admin/login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	admin, err := s.Store.Admins.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, r, errInvalidLogin)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.fail(w, r, errInvalidLogin)
		return
	}

	token, err := auth.GenerateToken(admin.ID, auth.RoleAdmin, s.Secret)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, models.LoginResponse{Token: token, Admin: *admin})
}

// ListTeachers handles GET /api/admin/teachers
func (s *Server) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := s.Store.Teachers.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, teachers)
}

// CreateTeacher handles POST /api/admin/teachers
func (s *Server) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTeacherRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t := &models.Teacher{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Phone:      req.Phone,
		EmployeeID: req.EmployeeID,
		Status:     models.TeacherActive,
	}
	if err := s.Store.Teachers.Create(r.Context(), t); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "add_teacher", "Added teacher: "+t.Name)
	respond(w, http.StatusCreated, t)
}

// UpdateTeacher handles PATCH /api/admin/teachers/{id}
func (s *Server) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req models.UpdateTeacherRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	t, err := s.Store.Teachers.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t.Name = strings.TrimSpace(req.Name)
	t.Email = strings.TrimSpace(req.Email)
	t.Phone = req.Phone
	t.EmployeeID = req.EmployeeID
	t.Status = req.Status
	if err := s.Store.Teachers.Update(r.Context(), t); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "update_teacher", fmt.Sprintf("Updated teacher %d (%s)", t.ID, t.Status))
	respond(w, http.StatusOK, t)
}

// TeacherCredentials handles GET /api/admin/teachers/{id}/credentials
func (s *Server) TeacherCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.Store.Teachers.Get(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	creds, err := s.Store.Credentials.FindByTeacher(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, creds)
}

// ListTimetable handles GET /api/admin/timetables?teacher_id=
func (s *Server) ListTimetable(w http.ResponseWriter, r *http.Request) {
	teacherID, err := queryTeacherID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.Store.Timetable.ForTeacher(r.Context(), teacherID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, entries)
}

// CreateTimetable handles POST /api/admin/timetables
//
// Times may be given as HH:MM or HH:MM:SS. Overlapping lessons are allowed.
func (s *Server) CreateTimetable(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTimetableRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	start, err := attendance.NormalizeClock(req.LessonStart)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := attendance.NormalizeClock(req.LessonEnd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if start >= end {
		s.fail(w, r, fmt.Errorf("%w: lesson_end must be after lesson_start", errBadRequest))
		return
	}
	if _, err := s.Store.Teachers.Get(r.Context(), req.TeacherID); err != nil {
		s.fail(w, r, err)
		return
	}

	e := &models.TimetableEntry{
		TeacherID:   req.TeacherID,
		DayOfWeek:   req.DayOfWeek,
		LessonStart: start,
		LessonEnd:   end,
		Subject:     strings.TrimSpace(req.Subject),
	}
	if err := s.Store.Timetable.Create(r.Context(), e); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "add_timetable", fmt.Sprintf("Added lesson for teacher %d on day %d at %s", e.TeacherID, e.DayOfWeek, e.LessonStart))
	respond(w, http.StatusCreated, e)
}

// DeleteTimetable handles DELETE /api/admin/timetables/{id}
func (s *Server) DeleteTimetable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Store.Timetable.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "delete_timetable", fmt.Sprintf("Deleted lesson %d", id))
	w.WriteHeader(http.StatusNoContent)
}

// DayAttendance handles GET /api/admin/attendance?date=YYYY-MM-DD
//
// date defaults to today in the school's time zone.
func (s *Server) DayAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.Attendance.Today().Format(attendance.DateLayout)
	} else if _, err := time.Parse(attendance.DateLayout, date); err != nil {
		s.fail(w, r, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest))
		return
	}
	logs, err := s.Store.Logs.ForDay(r.Context(), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.AttendanceLog{}
	}
	respond(w, http.StatusOK, logs)
}

// ListHolidays handles GET /api/admin/holidays
func (s *Server) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := s.Store.Holidays.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, holidays)
}

// CreateHoliday handles POST /api/admin/holidays
func (s *Server) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHolidayRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	// YYYY-MM-DD compares correctly as a string.
	if req.EndDate != nil && *req.EndDate < req.HolidayDate {
		s.fail(w, r, fmt.Errorf("%w: end_date must not be before holiday_date", errBadRequest))
		return
	}

	h := &models.Holiday{
		Name:        strings.TrimSpace(req.Name),
		HolidayDate: req.HolidayDate,
		EndDate:     req.EndDate,
		IsRecurring: req.IsRecurring,
	}
	if err := s.Store.Holidays.Create(r.Context(), h); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "add_holiday", "Added holiday: "+h.Name)
	respond(w, http.StatusCreated, h)
}

// DeleteHoliday handles DELETE /api/admin/holidays/{id}
func (s *Server) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Store.Holidays.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "delete_holiday", fmt.Sprintf("Deleted holiday %d", id))
	w.WriteHeader(http.StatusNoContent)
}
