package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

func kampala(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Kampala")
	require.NoError(t, err)
	return loc
}

func TestClassifyClockIn(t *testing.T) {
	loc := kampala(t)
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, loc)
	at := func(h, m, s int) time.Time { return time.Date(2025, 3, 3, h, m, s, 0, loc) }

	tests := []struct {
		name string
		at   time.Time
		want models.ClockInStatus
	}{
		{"ninety minutes early", at(7, 30, 0), models.ClockInEarly},
		{"exactly an hour early", at(8, 0, 0), models.ClockInEarly},
		{"59.5 minutes early rounds to 60", at(8, 0, 30), models.ClockInEarly},
		{"59 minutes early", at(8, 1, 0), models.ClockInOnTime},
		{"half an hour early", at(8, 30, 0), models.ClockInOnTime},
		{"one second early", at(8, 59, 59), models.ClockInOnTime},
		{"exactly at start", at(9, 0, 0), models.ClockInLate},
		{"quarter past", at(9, 15, 0), models.ClockInLate},
		{"thirty minutes", at(9, 30, 0), models.ClockInLate},
		{"thirty minutes and change rounds down", at(9, 30, 29), models.ClockInLate},
		{"thirty one minutes", at(9, 31, 0), models.ClockInVeryLate},
		{"forty five minutes", at(9, 45, 0), models.ClockInVeryLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyClockIn(tt.at, start))
		})
	}
}

func TestClassifyClockIn_Monotonic(t *testing.T) {
	rank := map[models.ClockInStatus]int{
		models.ClockInEarly: 0, models.ClockInOnTime: 1, models.ClockInLate: 2, models.ClockInVeryLate: 3,
	}
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	prev := -1
	for at := start.Add(-3 * time.Hour); at.Before(start.Add(2 * time.Hour)); at = at.Add(20 * time.Second) {
		r := rank[ClassifyClockIn(at, start)]
		require.GreaterOrEqual(t, r, prev, "status went backwards at %s", at.Format(ClockLayout))
		prev = r
	}
}

func TestClassifyClockOut(t *testing.T) {
	end := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, models.ClockOutOnTime, ClassifyClockOut(end.Add(-time.Hour), end))
	assert.Equal(t, models.ClockOutOnTime, ClassifyClockOut(end, end))
	assert.Equal(t, models.ClockOutLate, ClassifyClockOut(end.Add(time.Minute), end))
}

func TestDerive(t *testing.T) {
	in := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	out := in.Add(time.Hour)

	assert.Equal(t, models.AttendancePresent, Derive(&in, &out, models.AttendanceAbsent))
	assert.Equal(t, models.AttendancePresent, Derive(&in, &out, models.AttendanceMissed))
	assert.Equal(t, models.AttendanceAbsent, Derive(&in, nil, models.AttendanceAbsent))
	assert.Equal(t, models.AttendanceAbsent, Derive(nil, &out, models.AttendanceAbsent))
	assert.Equal(t, models.AttendanceAbsent, Derive(nil, nil, ""))
	assert.Equal(t, models.AttendanceMissed, Derive(nil, nil, models.AttendanceMissed))
	assert.Equal(t, models.AttendanceMissed, Derive(&in, nil, models.AttendanceMissed))
}

func TestNormalizeClock(t *testing.T) {
	for in, want := range map[string]string{
		"09:00":    "09:00:00",
		"9:05":     "09:05:00",
		"noon":     "",
		"14:30:15": "14:30:15",
		" 07:45 ":  "07:45:00",
	} {
		got, err := NormalizeClock(in)
		if want == "" {
			assert.ErrorIs(t, err, ErrInvalidClock, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := NormalizeClock("25:00")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestISOWeekday(t *testing.T) {
	monday := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i+1, ISOWeekday(monday.AddDate(0, 0, i)))
	}
}

func TestHumanStatus(t *testing.T) {
	assert.Equal(t, "On time", HumanStatus("on_time"))
	assert.Equal(t, "Very late", HumanStatus("very_late"))
	assert.Equal(t, "Present", HumanStatus("present"))
	assert.Equal(t, "", HumanStatus(""))
}

type fakeTimetable map[int][]models.TimetableEntry

func (f fakeTimetable) ForTeacherDay(_ context.Context, _ int64, dow int) ([]models.TimetableEntry, error) {
	return f[dow], nil
}

type failingTimetable struct{}

func (failingTimetable) ForTeacherDay(context.Context, int64, int) ([]models.TimetableEntry, error) {
	return nil, errors.New("db down")
}

func TestMatcher_Resolve(t *testing.T) {
	loc := kampala(t)
	m := NewMatcher(fakeTimetable{
		1: {
			{ID: 1, TeacherID: 7, DayOfWeek: 1, LessonStart: "09:00:00", LessonEnd: "10:00:00"},
			{ID: 2, TeacherID: 7, DayOfWeek: 1, LessonStart: "14:00:00", LessonEnd: "15:00:00"},
		},
		2: {
			{ID: 3, TeacherID: 7, DayOfWeek: 2, LessonStart: "09:00:00", LessonEnd: "10:00:00"},
			{ID: 4, TeacherID: 7, DayOfWeek: 2, LessonStart: "09:30:00", LessonEnd: "10:30:00"},
		},
	})
	monday := func(h, mi int) time.Time { return time.Date(2025, 3, 3, h, mi, 0, 0, loc) }

	tests := []struct {
		name    string
		at      time.Time
		wantID  int64
		wantNil bool
	}{
		{"afternoon lesson window", monday(13, 10), 2, false},
		{"two hours before morning lesson", monday(7, 0), 1, false},
		{"just outside morning window falls back to first", monday(6, 59), 1, false},
		{"an hour after afternoon start", monday(15, 0), 2, false},
		{"evening falls back to first", monday(18, 0), 1, false},
		{"overlap picks the earlier lesson", time.Date(2025, 3, 4, 9, 10, 0, 0, loc), 3, false},
		{"no lessons on sunday", time.Date(2025, 3, 9, 9, 0, 0, 0, loc), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := m.Resolve(context.Background(), 7, tt.at)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, slot)
				return
			}
			require.NotNil(t, slot)
			assert.Equal(t, tt.wantID, slot.Entry.ID)
			assert.Equal(t, tt.at.Format(DateLayout), slot.Date)
			assert.Equal(t, loc, slot.Start.Location())
		})
	}
}

func TestMatcher_PropagatesErrors(t *testing.T) {
	_, err := NewMatcher(failingTimetable{}).Resolve(context.Background(), 1, time.Now())
	assert.Error(t, err)
}
