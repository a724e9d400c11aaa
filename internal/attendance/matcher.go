package attendance

import (
	"context"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/models"
)

// A clock-in applies to a lesson if it happens between two hours before and
// one hour after the lesson's start.
const (
	windowBeforeMinutes = 120
	windowAfterMinutes  = 60
)

// TimetableSource lists a teacher's lessons for one ISO weekday, earliest first.
type TimetableSource interface {
	ForTeacherDay(ctx context.Context, teacherID int64, dayOfWeek int) ([]models.TimetableEntry, error)
}

// Slot is one timetable entry placed on a concrete date.
type Slot struct {
	Entry models.TimetableEntry
	Date  string
	Start time.Time
	End   time.Time
}

// Key returns the attendance log identity of the slot.
func (s Slot) Key() models.LessonKey {
	return models.LessonKey{TeacherID: s.Entry.TeacherID, LessonDate: s.Date, LessonStart: s.Entry.LessonStart}
}

// Matcher resolves which lesson a clock event belongs to.
type Matcher struct {
	timetable TimetableSource
}

// NewMatcher returns a Matcher reading lessons from timetable. It holds no
// clock or time zone; callers pass wall-clock times already in the school's
// zone.
func NewMatcher(timetable TimetableSource) *Matcher {
	return &Matcher{timetable: timetable}
}

// Resolve picks the first lesson on at's weekday whose start is within the
// clock-in window, falling back to the day's first lesson. It returns nil
// when the teacher has no lessons that day. at must already be in the
// attendance time zone.
func (m *Matcher) Resolve(ctx context.Context, teacherID int64, at time.Time) (*Slot, error) {
	entries, err := m.timetable.ForTeacherDay(ctx, teacherID, ISOWeekday(at))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	slots := make([]Slot, 0, len(entries))
	for _, e := range entries {
		start, err := On(at, e.LessonStart)
		if err != nil {
			return nil, err
		}
		end, err := On(at, e.LessonEnd)
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{Entry: e, Date: at.Format(DateLayout), Start: start, End: end})
	}

	for i := range slots {
		diff := roundedMinutes(at, slots[i].Start)
		if diff >= -windowBeforeMinutes && diff <= windowAfterMinutes {
			return &slots[i], nil
		}
	}
	return &slots[0], nil
}
