package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/db"
	"github.com/Elizabethomito/igaratrack/internal/models"
)

// newTestStore opens a file-backed database so concurrent writers wait on
// busy_timeout instead of failing with a shared-cache lock error.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := t.TempDir() + "/store.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	d, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return New(d)
}

func seedTeacher(t *testing.T, s *Store, name string, status models.TeacherStatus) *models.Teacher {
	t.Helper()
	tc := &models.Teacher{Name: name, Status: status}
	if err := s.Teachers.Create(context.Background(), tc); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	return tc
}

func TestTeachers_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tc := seedTeacher(t, s, "Amina", "")
	if tc.Status != models.TeacherActive {
		t.Errorf("default status = %q, want active", tc.Status)
	}

	tc.Status = models.TeacherInactive
	if err := s.Teachers.Update(ctx, tc); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Teachers.Get(ctx, tc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.TeacherInactive {
		t.Errorf("status = %q, want inactive", got.Status)
	}

	if _, err := s.Teachers.Get(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Teachers.Update(ctx, &models.Teacher{ID: 999, Status: models.TeacherActive}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: err = %v, want ErrNotFound", err)
	}

	list, err := s.Teachers.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List len = %d, want 1", len(list))
	}
}

func TestAdmins_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Admins.Create(ctx, &models.Admin{Username: "root", PasswordHash: "x"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Admins.Create(ctx, &models.Admin{Username: "root", PasswordHash: "y"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate: err = %v, want ErrConflict", err)
	}
	a, err := s.Admins.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if a.PasswordHash != "x" {
		t.Errorf("hash = %q, want first insert to win", a.PasswordHash)
	}
	if _, err := s.Admins.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
}

func TestCredentials_BumpCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tc := seedTeacher(t, s, "Baraka", models.TeacherActive)

	c := &models.Credential{TeacherID: tc.ID, CredentialID: []byte{1, 2, 3}, PublicKey: []byte{9}, SignCount: 5}
	if err := s.Credentials.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	dup := &models.Credential{TeacherID: tc.ID, CredentialID: []byte{1, 2, 3}, PublicKey: []byte{9}}
	if err := s.Credentials.Insert(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate credential id: err = %v, want ErrConflict", err)
	}

	now := time.Now()
	if err := s.Credentials.BumpCounter(ctx, c.ID, 5, now); !errors.Is(err, ErrConflict) {
		t.Errorf("equal counter: err = %v, want ErrConflict", err)
	}
	if err := s.Credentials.BumpCounter(ctx, c.ID, 4, now); !errors.Is(err, ErrConflict) {
		t.Errorf("lower counter: err = %v, want ErrConflict", err)
	}
	if err := s.Credentials.BumpCounter(ctx, c.ID, 6, now); err != nil {
		t.Fatalf("higher counter: %v", err)
	}

	got, err := s.Credentials.FindForTeacher(ctx, tc.ID, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("FindForTeacher: %v", err)
	}
	if got.SignCount != 6 {
		t.Errorf("sign count = %d, want 6", got.SignCount)
	}
	if got.LastUsed == nil {
		t.Error("last_used not set")
	}

	other := seedTeacher(t, s, "Other", models.TeacherActive)
	if _, err := s.Credentials.FindForTeacher(ctx, other.ID, []byte{1, 2, 3}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign credential: err = %v, want ErrNotFound", err)
	}
}

func TestCredentials_ZeroCounterAuthenticator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tc := seedTeacher(t, s, "Chebet", models.TeacherActive)

	c := &models.Credential{TeacherID: tc.ID, CredentialID: []byte{7}, PublicKey: []byte{9}}
	if err := s.Credentials.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Credentials.BumpCounter(ctx, c.ID, 0, time.Now()); err != nil {
			t.Fatalf("zero counter use %d: %v", i, err)
		}
	}
}

func TestTimetable_OrderAndActiveFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	active := seedTeacher(t, s, "Active", models.TeacherActive)
	inactive := seedTeacher(t, s, "Inactive", models.TeacherInactive)

	for _, e := range []models.TimetableEntry{
		{TeacherID: active.ID, DayOfWeek: 1, LessonStart: "14:00:00", LessonEnd: "15:00:00"},
		{TeacherID: active.ID, DayOfWeek: 1, LessonStart: "09:00:00", LessonEnd: "10:00:00"},
		{TeacherID: active.ID, DayOfWeek: 2, LessonStart: "08:00:00", LessonEnd: "09:00:00"},
		{TeacherID: inactive.ID, DayOfWeek: 1, LessonStart: "09:00:00", LessonEnd: "10:00:00"},
	} {
		e := e
		if err := s.Timetable.Create(ctx, &e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	day, err := s.Timetable.ForTeacherDay(ctx, active.ID, 1)
	if err != nil {
		t.Fatalf("ForTeacherDay: %v", err)
	}
	if len(day) != 2 || day[0].LessonStart != "09:00:00" || day[1].LessonStart != "14:00:00" {
		t.Errorf("ForTeacherDay = %+v, want 09:00 then 14:00", day)
	}

	all, err := s.Timetable.ActiveForDay(ctx, 1)
	if err != nil {
		t.Fatalf("ActiveForDay: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ActiveForDay len = %d, want 2 (inactive teacher excluded)", len(all))
	}

	if err := s.Timetable.Delete(ctx, day[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Timetable.Delete(ctx, day[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestHolidays_Covers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	end := "2025-04-21"
	for _, h := range []*models.Holiday{
		{Name: "Easter", HolidayDate: "2025-04-18", EndDate: &end},
		{Name: "Labour Day", HolidayDate: "2025-05-01"},
	} {
		if err := s.Holidays.Create(ctx, h); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		date string
		want bool
	}{
		{"2025-04-17", false},
		{"2025-04-18", true},
		{"2025-04-20", true},
		{"2025-04-21", true},
		{"2025-04-22", false},
		{"2025-05-01", true},
		{"2025-05-02", false}, // no end date covers only the one day
	}
	for _, tt := range tests {
		got, err := s.Holidays.Covers(ctx, tt.date)
		if err != nil {
			t.Fatalf("Covers(%s): %v", tt.date, err)
		}
		if got != tt.want {
			t.Errorf("Covers(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}

	list, err := s.Holidays.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].EndDate != nil || list[1].EndDate == nil || *list[1].EndDate != end {
		t.Errorf("List = %+v", list)
	}
}

func TestAttendance_RecordClockInOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tc := seedTeacher(t, s, "Dalia", models.TeacherActive)
	key := models.LessonKey{TeacherID: tc.ID, LessonDate: "2025-03-03", LessonStart: "09:00:00"}

	// A pre-generated row is upgraded in place.
	inserted, err := s.Logs.EnsureSlot(ctx, key, "10:00:00")
	if err != nil || !inserted {
		t.Fatalf("EnsureSlot = %v, %v; want true, nil", inserted, err)
	}
	inserted, err = s.Logs.EnsureSlot(ctx, key, "10:00:00")
	if err != nil || inserted {
		t.Fatalf("second EnsureSlot = %v, %v; want false, nil", inserted, err)
	}

	at := time.Date(2025, 3, 3, 8, 58, 0, 0, time.UTC)
	if err := s.Logs.RecordClockIn(ctx, key, "10:00:00", at, models.ClockInOnTime); err != nil {
		t.Fatalf("RecordClockIn: %v", err)
	}
	if err := s.Logs.RecordClockIn(ctx, key, "10:00:00", at.Add(time.Minute), models.ClockInLate); !errors.Is(err, ErrConflict) {
		t.Errorf("second RecordClockIn: err = %v, want ErrConflict", err)
	}

	l, err := s.Logs.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if l.ClockInTime == nil || !l.ClockInTime.Equal(at) {
		t.Errorf("clock_in_time = %v, want %v", l.ClockInTime, at)
	}
	if l.ClockInStatus == nil || *l.ClockInStatus != models.ClockInOnTime {
		t.Errorf("clock_in_status = %v, want on_time", l.ClockInStatus)
	}
	if l.AttendanceStatus != models.AttendanceAbsent {
		t.Errorf("attendance_status = %q, want absent until clock-out", l.AttendanceStatus)
	}
}

func TestAttendance_ConcurrentClockIn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tc := seedTeacher(t, s, "Esther", models.TeacherActive)
	key := models.LessonKey{TeacherID: tc.ID, LessonDate: "2025-03-03", LessonStart: "09:00:00"}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := time.Date(2025, 3, 3, 8, 50+i, 0, 0, time.UTC)
			err := s.Logs.RecordClockIn(ctx, key, "10:00:00", at, models.ClockInOnTime)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("worker %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 || conflicts != workers-1 {
		t.Errorf("succeeded=%d conflicts=%d, want 1 and %d", succeeded, conflicts, workers-1)
	}
	logs, err := s.Logs.ForTeacherDay(ctx, tc.ID, "2025-03-03")
	if err != nil {
		t.Fatalf("ForTeacherDay: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("rows = %d, want 1", len(logs))
	}
}

func TestAttendance_ClockOutAndLatestOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tc := seedTeacher(t, s, "Faith", models.TeacherActive)
	date := "2025-03-03"
	morning := models.LessonKey{TeacherID: tc.ID, LessonDate: date, LessonStart: "09:00:00"}
	afternoon := models.LessonKey{TeacherID: tc.ID, LessonDate: date, LessonStart: "14:00:00"}

	if _, err := s.Logs.LatestOpen(ctx, tc.ID, date); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestOpen on empty day: err = %v, want ErrNotFound", err)
	}

	at := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	if err := s.Logs.RecordClockIn(ctx, morning, "10:00:00", at, models.ClockInOnTime); err != nil {
		t.Fatal(err)
	}
	if err := s.Logs.RecordClockIn(ctx, afternoon, "15:00:00", at.Add(5*time.Hour), models.ClockInOnTime); err != nil {
		t.Fatal(err)
	}

	open, err := s.Logs.LatestOpen(ctx, tc.ID, date)
	if err != nil {
		t.Fatalf("LatestOpen: %v", err)
	}
	if open.LessonStartTime != "14:00:00" {
		t.Errorf("LatestOpen start = %s, want 14:00:00", open.LessonStartTime)
	}

	out := at.Add(6 * time.Hour)
	if err := s.Logs.RecordClockOut(ctx, open.ID, out, models.ClockOutOnTime, models.AttendancePresent); err != nil {
		t.Fatalf("RecordClockOut: %v", err)
	}
	if err := s.Logs.RecordClockOut(ctx, open.ID, out, models.ClockOutOnTime, models.AttendancePresent); !errors.Is(err, ErrConflict) {
		t.Errorf("second RecordClockOut: err = %v, want ErrConflict", err)
	}

	open, err = s.Logs.LatestOpen(ctx, tc.ID, date)
	if err != nil {
		t.Fatalf("LatestOpen after close: %v", err)
	}
	if open.LessonStartTime != "09:00:00" {
		t.Errorf("LatestOpen start = %s, want 09:00:00", open.LessonStartTime)
	}
}

func TestAttendance_MarkMissed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tc := seedTeacher(t, s, "Gideon", models.TeacherActive)

	old := models.LessonKey{TeacherID: tc.ID, LessonDate: "2025-03-02", LessonStart: "09:00:00"}
	attended := models.LessonKey{TeacherID: tc.ID, LessonDate: "2025-03-02", LessonStart: "11:00:00"}
	today := models.LessonKey{TeacherID: tc.ID, LessonDate: "2025-03-03", LessonStart: "09:00:00"}
	for _, k := range []models.LessonKey{old, attended, today} {
		if _, err := s.Logs.EnsureSlot(ctx, k, "10:00:00"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Logs.RecordClockIn(ctx, attended, "12:00:00", time.Now(), models.ClockInLate); err != nil {
		t.Fatal(err)
	}

	n, err := s.Logs.MarkMissed(ctx, "2025-03-03")
	if err != nil {
		t.Fatalf("MarkMissed: %v", err)
	}
	if n != 1 {
		t.Errorf("MarkMissed = %d, want 1", n)
	}
	for k, want := range map[models.LessonKey]models.AttendanceStatus{
		old:      models.AttendanceMissed,
		attended: models.AttendanceAbsent,
		today:    models.AttendanceAbsent,
	} {
		l, err := s.Logs.Get(ctx, k)
		if err != nil {
			t.Fatal(err)
		}
		if l.AttendanceStatus != want {
			t.Errorf("%+v status = %q, want %q", k, l.AttendanceStatus, want)
		}
	}
}

func TestAudit_Record(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Audit.Record(ctx, models.AuditEntry{UserType: "teacher", UserID: 1, Action: "clock_in"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	n, err := s.Audit.Count(ctx, "clock_in")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
