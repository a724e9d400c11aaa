package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Elizabethomito/igaratrack/internal/metrics"
	"github.com/Elizabethomito/igaratrack/internal/models"
)

// ActiveTimetable lists every active teacher's lessons on an ISO weekday.
type ActiveTimetable interface {
	ActiveForDay(ctx context.Context, dayOfWeek int) ([]models.TimetableEntry, error)
}

// SlotWriter creates placeholder rows and sweeps stale ones.
type SlotWriter interface {
	EnsureSlot(ctx context.Context, key models.LessonKey, lessonEnd string) (bool, error)
	MarkMissed(ctx context.Context, before string) (int64, error)
}

// RunResult summarises one pre-generation pass.
type RunResult struct {
	Date    string
	Holiday bool
	Created int
	Skipped int
}

// Pregenerator creates an absent row for every lesson slot of a day so that
// lessons nobody clocked into still show up in reports.
type Pregenerator struct {
	holidays  HolidayCalendar
	timetable ActiveTimetable
	slots     SlotWriter
	log       *slog.Logger
}

// NewPregenerator wires a Pregenerator. log may be nil.
//
// holidays decides whether a day is skipped, timetable lists the active
// teachers' lessons and slots receives the rows. Rows are inserted with
// ON CONFLICT DO NOTHING, so Nightly can run any number of times per day.
func NewPregenerator(holidays HolidayCalendar, timetable ActiveTimetable, slots SlotWriter, log *slog.Logger) *Pregenerator {
	if log == nil {
		log = slog.Default()
	}
	return &Pregenerator{holidays: holidays, timetable: timetable, slots: slots, log: log}
}

// Run creates rows for day's lessons. Existing rows, including ones a
// teacher clocked into moments earlier, are counted as skipped and left
// untouched. Holidays produce no rows.
func (p *Pregenerator) Run(ctx context.Context, day time.Time) (*RunResult, error) {
	res := &RunResult{Date: day.Format(DateLayout)}

	holiday, err := p.holidays.Covers(ctx, res.Date)
	if err != nil {
		return nil, err
	}
	if holiday {
		res.Holiday = true
		p.log.Info("public holiday, no attendance logs generated", "date", res.Date)
		return res, nil
	}

	lessons, err := p.timetable.ActiveForDay(ctx, ISOWeekday(day))
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		key := models.LessonKey{TeacherID: l.TeacherID, LessonDate: res.Date, LessonStart: l.LessonStart}
		inserted, err := p.slots.EnsureSlot(ctx, key, l.LessonEnd)
		if err != nil {
			return res, fmt.Errorf("teacher %d lesson %s: %w", l.TeacherID, l.LessonStart, err)
		}
		if inserted {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	metrics.RecordPregenerated(metrics.ResultCreated, res.Created)
	metrics.RecordPregenerated(metrics.ResultSkipped, res.Skipped)
	p.log.Info("attendance logs generated", "date", res.Date, "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

// MarkMissed labels untouched absent rows dated before day as missed.
func (p *Pregenerator) MarkMissed(ctx context.Context, day time.Time) (int64, error) {
	n, err := p.slots.MarkMissed(ctx, day.Format(DateLayout))
	if err != nil {
		return 0, err
	}
	metrics.RecordPregenerated(metrics.ResultMissed, int(n))
	if n > 0 {
		p.log.Info("marked lessons missed", "before", day.Format(DateLayout), "count", n)
	}
	return n, nil
}

// Nightly runs the sweep for earlier days and then generates rows for day.
func (p *Pregenerator) Nightly(ctx context.Context, day time.Time) (*RunResult, error) {
	if _, err := p.MarkMissed(ctx, day); err != nil {
		return nil, err
	}
	return p.Run(ctx, day)
}
