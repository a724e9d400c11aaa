package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/auth"
	"github.com/Elizabethomito/igaratrack/internal/metrics"
	"github.com/Elizabethomito/igaratrack/internal/middleware"
)

// Routes builds the full HTTP handler: the route table wrapped in request
// logging, CORS for the relying-party origin and the ceremony session cookie.
// RealIP runs outermost so every layer sees the same client address.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Ceremony and clock endpoints. Teachers hold no token; every clock
	// event carries a fresh assertion instead.
	mux.HandleFunc("POST /api/webauthn/auth-challenge", s.AuthChallenge)
	mux.HandleFunc("POST /api/attendance/clock-in", s.ClockIn)
	mux.HandleFunc("POST /api/attendance/clock-out", s.ClockOut)
	mux.HandleFunc("GET /api/attendance/today", s.Today)
	mux.HandleFunc("POST /api/admin/login", s.Login)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", s.Healthz)

	authn := middleware.Authenticate(s.Secret)
	onlyAdmin := middleware.RequireRole(auth.RoleAdmin)
	admin := func(h http.HandlerFunc) http.Handler { return authn(onlyAdmin(h)) }

	mux.Handle("POST /api/admin/webauthn/register-challenge", admin(s.RegisterChallenge))
	mux.Handle("POST /api/admin/webauthn/register-verify", admin(s.RegisterVerify))

	mux.Handle("GET /api/admin/teachers", admin(s.ListTeachers))
	mux.Handle("POST /api/admin/teachers", admin(s.CreateTeacher))
	mux.Handle("PATCH /api/admin/teachers/{id}", admin(s.UpdateTeacher))
	mux.Handle("GET /api/admin/teachers/{id}/credentials", admin(s.TeacherCredentials))

	mux.Handle("GET /api/admin/timetables", admin(s.ListTimetable))
	mux.Handle("POST /api/admin/timetables", admin(s.CreateTimetable))
	mux.Handle("DELETE /api/admin/timetables/{id}", admin(s.DeleteTimetable))

	mux.Handle("GET /api/admin/attendance", admin(s.DayAttendance))

	mux.Handle("GET /api/admin/holidays", admin(s.ListHolidays))
	mux.Handle("POST /api/admin/holidays", admin(s.CreateHoliday))
	mux.Handle("DELETE /api/admin/holidays/{id}", admin(s.DeleteHoliday))

	origin := s.Ceremonies.Config().RPOrigin
	secure := strings.HasPrefix(origin, "https://")

	var h http.Handler = mux
	h = middleware.Session(secure)(h)
	h = middleware.CORS(origin)(h)
	h = middleware.Logger(s.Log)(h)
	h = middleware.RealIP(s.TrustProxy)(h)
	return h
}

// Healthz handles GET /healthz
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.DB.PingContext(ctx); err != nil {
		s.Log.Error("health check failed", "err", err)
		respond(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	respond(w, http.StatusOK, map[string]any{"status": "ok"})
}
