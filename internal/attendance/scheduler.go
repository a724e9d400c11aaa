package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds one nightly pass.
const runTimeout = 4 * time.Minute

// Scheduler runs the Pregenerator on a cron schedule in the attendance zone.
type Scheduler struct {
	cron *cron.Cron
	pre  *Pregenerator
	loc  *time.Location
	log  *slog.Logger
}

// NewScheduler parses schedule (standard five-field cron) and registers the
// nightly job. Overlapping runs are skipped.
func NewScheduler(pre *Pregenerator, schedule string, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	cl := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		pre: pre,
		loc: loc,
		log: log,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.pre.Nightly(ctx, time.Now().In(s.loc)); err != nil {
		s.log.Error("nightly attendance job failed", "err", err)
	}
}

// Start begins running the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("attendance scheduler started", "next_run", e.Next.Format(time.RFC3339))
	}
}

// Stop halts the schedule and returns a context done when a running job ends.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
