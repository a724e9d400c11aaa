// Package attendance turns verified clock events into attendance records.
//
// Every wall-clock comparison happens in one configured time zone. Lesson
// times are stored as "HH:MM:SS" strings and combined with the event's date
// in that zone before comparing.
package attendance

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"

	// earlyMinutes before the start counts as early rather than on time.
	earlyMinutes = 60
	// lateMinutes after the start is the last minute still counted as late.
	lateMinutes = 30
)

var (
	ErrAlreadyClockedIn  = errors.New("already clocked in for this lesson")
	ErrAlreadyClockedOut = errors.New("already clocked out for this lesson")
	ErrNoOpenClockIn     = errors.New("no clock-in found for today")
	ErrTeacherInactive   = errors.New("teacher is inactive")
	ErrTeacherNotFound   = errors.New("teacher not found")
	ErrInvalidClock      = errors.New("invalid time of day")
)

// roundedMinutes is (a - b) in whole minutes, rounded half away from zero.
func roundedMinutes(a, b time.Time) int64 {
	return int64(math.Round(a.Sub(b).Minutes()))
}

// ClassifyClockIn grades a clock-in against the lesson start. Arriving
// exactly at the start already counts as late.
func ClassifyClockIn(at, start time.Time) models.ClockInStatus {
	diff := roundedMinutes(at, start)
	if at.Before(start) {
		if -diff >= earlyMinutes {
			return models.ClockInEarly
		}
		return models.ClockInOnTime
	}
	if diff <= lateMinutes {
		return models.ClockInLate
	}
	return models.ClockInVeryLate
}

// ClassifyClockOut grades a clock-out against the lesson end.
func ClassifyClockOut(at, end time.Time) models.ClockOutStatus {
	if at.After(end) {
		return models.ClockOutLate
	}
	return models.ClockOutOnTime
}

// Derive computes the overall status of a slot. A slot is present only once
// both ends are recorded. A missed label set by the nightly sweep is kept
// while data is incomplete.
func Derive(clockIn, clockOut *time.Time, current models.AttendanceStatus) models.AttendanceStatus {
	if clockIn != nil && clockOut != nil {
		return models.AttendancePresent
	}
	if current == models.AttendanceMissed {
		return models.AttendanceMissed
	}
	return models.AttendanceAbsent
}

// NormalizeClock accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM:SS".
func NormalizeClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

// On places a stored time of day on day's calendar date in day's location.
func On(day time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, day.Location()), nil
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(t time.Time) int {
	if wd := t.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

// HumanStatus renders an enum value for messages: "on_time" becomes "On time".
func HumanStatus(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
