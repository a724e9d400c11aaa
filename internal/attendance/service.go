package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/metrics"
	"github.com/Elizabethomito/igaratrack/internal/models"
	"github.com/Elizabethomito/igaratrack/internal/store"
)

// TeacherLookup resolves a teacher by id.
type TeacherLookup interface {
	Get(ctx context.Context, id int64) (*models.Teacher, error)
}

// HolidayCalendar reports whether a YYYY-MM-DD date is a public holiday.
type HolidayCalendar interface {
	Covers(ctx context.Context, date string) (bool, error)
}

// LogStore is the slice of store.AttendanceLogs the clock flow needs.
type LogStore interface {
	RecordClockIn(ctx context.Context, key models.LessonKey, lessonEnd string, at time.Time, status models.ClockInStatus) error
	LatestOpen(ctx context.Context, teacherID int64, date string) (*models.AttendanceLog, error)
	RecordClockOut(ctx context.Context, id int64, at time.Time, status models.ClockOutStatus, overall models.AttendanceStatus) error
	ForTeacherDay(ctx context.Context, teacherID int64, date string) ([]models.AttendanceLog, error)
}

// Auditor appends to the audit trail.
type Auditor interface {
	Record(ctx context.Context, e models.AuditEntry) error
}

// ServiceParams wires a Service.
type ServiceParams struct {
	Teachers  TeacherLookup
	Holidays  HolidayCalendar
	Timetable TimetableSource
	Logs      LogStore
	Audit     Auditor
	Location  *time.Location
	Logger    *slog.Logger
	// Now overrides the wall clock. Defaults to time.Now.
	Now func() time.Time
}

// Service records clock-ins and clock-outs for verified teachers.
type Service struct {
	teachers TeacherLookup
	holidays HolidayCalendar
	logs     LogStore
	audit    Auditor
	matcher  *Matcher
	loc      *time.Location
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds the clock-in and clock-out service from p.
//
// LEARNING NOTE: one clock, one zone
// ────────────────────────────────────────────────────────────────────
// Every decision here (which weekday, which lesson, early or late) is a
// wall-clock comparison. NewService fixes both inputs up front: Location
// defaults to UTC and Now to time.Now, and every method reads the time as
// s.now().In(s.loc). Tests pin Now to a known Monday morning to exercise
// the status rules without waiting for real time to pass.
//
// Logger defaults to slog.Default. The Matcher is built from p.Timetable.
func NewService(p ServiceParams) *Service {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		teachers: p.Teachers,
		holidays: p.Holidays,
		logs:     p.Logs,
		audit:    p.Audit,
		matcher:  NewMatcher(p.Timetable),
		loc:      loc,
		log:      log,
		now:      now,
	}
}

// Location returns the zone all attendance dates are computed in.
func (s *Service) Location() *time.Location { return s.loc }

// Today returns the current date in the attendance zone.
func (s *Service) Today() time.Time { return s.now().In(s.loc) }

// ClockInResult describes a successful clock-in.
type ClockInResult struct {
	Message   string
	Status    models.ClockInStatus
	IsHoliday bool
	NoLessons bool
	Slot      *Slot
}

// ClockOutResult describes a successful clock-out.
type ClockOutResult struct {
	Message string
	Status  models.ClockOutStatus
	Overall models.AttendanceStatus
}

// RequireActive returns the teacher if it exists and is active.
func (s *Service) RequireActive(ctx context.Context, teacherID int64) (*models.Teacher, error) {
	t, err := s.teachers.Get(ctx, teacherID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeacherNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.Status != models.TeacherActive {
		return nil, ErrTeacherInactive
	}
	return t, nil
}

// ClockIn records a clock-in for the lesson the current time belongs to.
// Holidays and days without lessons succeed without writing anything.
func (s *Service) ClockIn(ctx context.Context, teacherID int64, ip string) (*ClockInResult, error) {
	if _, err := s.RequireActive(ctx, teacherID); err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	date := now.Format(DateLayout)

	holiday, err := s.holidays.Covers(ctx, date)
	if err != nil {
		return nil, err
	}
	if holiday {
		return &ClockInResult{Message: "Clock-in recorded. Note: Today is a public holiday.", IsHoliday: true}, nil
	}

	slot, err := s.matcher.Resolve(ctx, teacherID, now)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return &ClockInResult{Message: "Clock-in recorded. No lessons scheduled for today.", NoLessons: true}, nil
	}

	status := ClassifyClockIn(now, slot.Start)
	err = s.logs.RecordClockIn(ctx, slot.Key(), slot.Entry.LessonEnd, now, status)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrAlreadyClockedIn
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordClockEvent(metrics.ActionClockIn, string(status))
	s.record(ctx, teacherID, "clock_in", ip, fmt.Sprintf("Clocked in at %s for lesson %s", now.Format(time.DateTime), slot.Entry.LessonStart))
	s.log.Info("clock-in", "teacher_id", teacherID, "lesson_start", slot.Entry.LessonStart, "status", status)

	return &ClockInResult{
		Message: "Clock-in successful! Status: " + HumanStatus(string(status)),
		Status:  status,
		Slot:    slot,
	}, nil
}

// ClockOut closes today's latest open lesson.
func (s *Service) ClockOut(ctx context.Context, teacherID int64, ip string) (*ClockOutResult, error) {
	if _, err := s.RequireActive(ctx, teacherID); err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)

	open, err := s.logs.LatestOpen(ctx, teacherID, now.Format(DateLayout))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoOpenClockIn
	}
	if err != nil {
		return nil, err
	}
	if open.ClockOutTime != nil {
		return nil, ErrAlreadyClockedOut
	}

	end, err := On(now, open.LessonEndTime)
	if err != nil {
		return nil, err
	}
	status := ClassifyClockOut(now, end)
	overall := Derive(open.ClockInTime, &now, open.AttendanceStatus)

	err = s.logs.RecordClockOut(ctx, open.ID, now, status, overall)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrAlreadyClockedOut
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordClockEvent(metrics.ActionClockOut, string(status))
	s.record(ctx, teacherID, "clock_out", ip, "Clocked out at "+now.Format(time.DateTime))
	s.log.Info("clock-out", "teacher_id", teacherID, "lesson_start", open.LessonStartTime, "status", status)

	return &ClockOutResult{
		Message: "Clock-out successful! Status: " + HumanStatus(string(overall)),
		Status:  status,
		Overall: overall,
	}, nil
}

// Timeline lists today's clock events for a teacher in lesson order.
func (s *Service) Timeline(ctx context.Context, teacherID int64) ([]models.TimelineEntry, error) {
	now := s.now().In(s.loc)
	logs, err := s.logs.ForTeacherDay(ctx, teacherID, now.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	entries := []models.TimelineEntry{}
	for _, l := range logs {
		if l.ClockInTime != nil {
			var st string
			if l.ClockInStatus != nil {
				st = string(*l.ClockInStatus)
			}
			entries = append(entries, models.TimelineEntry{
				Time: l.ClockInTime.In(s.loc).Format("03:04 PM"), Action: "Clock In", Status: st,
			})
		}
		if l.ClockOutTime != nil {
			var st string
			if l.ClockOutStatus != nil {
				st = string(*l.ClockOutStatus)
			}
			entries = append(entries, models.TimelineEntry{
				Time: l.ClockOutTime.In(s.loc).Format("03:04 PM"), Action: "Clock Out", Status: st,
			})
		}
	}
	return entries, nil
}

// record writes an audit row. The clock event is already stored, so a
// failure here is logged rather than returned.
func (s *Service) record(ctx context.Context, teacherID int64, action, ip, details string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, models.AuditEntry{
		UserType: "teacher", UserID: teacherID, Action: action, Details: details, IPAddress: ip,
	})
	if err != nil {
		s.log.Error("audit write failed", "action", action, "teacher_id", teacherID, "err", err)
	}
}
