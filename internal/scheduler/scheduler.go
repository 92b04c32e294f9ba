// Package scheduler triggers report generation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
)

// RunFunc generates one report for the trigger time.
type RunFunc func(ctx context.Context, now time.Time) error

// parser accepts the six-field form with a leading seconds field, plus descriptors.
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler manages the report cron job.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	loc      *time.Location
	cal      *calendar.Calendar
	run      RunFunc
	logger   arbor.ILogger

	mu      sync.Mutex
	ctx     context.Context
	running bool
}

// New parses spec in loc and prepares the job. The job does not start until Start.
func New(spec string, loc *time.Location, cal *calendar.Calendar, run RunFunc, logger arbor.ILogger) (*Scheduler, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if loc == nil {
		loc = calendar.Eastern
	}
	if cal == nil {
		cal = calendar.New()
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithParser(parser)),
		schedule: sched,
		spec:     spec,
		loc:      loc,
		cal:      cal,
		run:      run,
		logger:   logger,
		ctx:      context.Background(),
	}
	s.cron.Schedule(sched, cron.FuncJob(func() {
		s.Tick(s.context(), time.Now())
	}))
	return s, nil
}

// Next returns the first trigger after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Spec returns the cron expression.
func (s *Scheduler) Spec() string { return s.spec }

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Tick runs the job for a trigger at now. Non-trading days are skipped, and
// a trigger that arrives while a run is in progress is dropped.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	day := s.cal.Today(now)
	if !s.cal.IsTradingDay(day) {
		reason := "weekend"
		if name, ok := s.cal.Holiday(day); ok {
			reason = name
		}
		s.logger.Info().Str("date", day.String()).Str("reason", reason).Msg("Not a trading day, skipping scheduled run")
		return false
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping trigger")
		return false
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Str("date", day.String()).Msg("Scheduled run starting")
	start := time.Now()
	if err := s.run(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed")
		return true
	}
	s.logger.Info().Dur("elapsed", time.Since(start)).Msg("Scheduled run complete")
	return true
}

// Run starts the cron loop and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info().
		Str("cron", s.spec).
		Str("timezone", s.loc.String()).
		Str("next", s.Next(time.Now()).Format(time.RFC3339)).
		Msg("Scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}
