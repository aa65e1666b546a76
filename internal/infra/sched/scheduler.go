package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/infra/metrics"
)

// NextFunc computes a job's next run strictly after now.
type NextFunc func(now time.Time) time.Time

// RunFunc is one job execution.
type RunFunc func(ctx context.Context) error

type job struct {
	name    string
	next    NextFunc
	run     RunFunc
	running int32
}

// Scheduler fires named jobs at computed times, one goroutine per job.
// A job that is still running when its next slot arrives is skipped for
// that slot rather than overlapped.
type Scheduler struct {
	jobs []*job
	log  *zerolog.Logger
}

func New(logger *zerolog.Logger) *Scheduler {
	compLog := logger.With().Str("component", "Scheduler").Logger()
	return &Scheduler{log: &compLog}
}

func (s *Scheduler) Add(name string, next NextFunc, run RunFunc) {
	s.jobs = append(s.jobs, &job{name: name, next: next, run: run})
}

// Start runs all jobs until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j *job) {
			defer wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	s.log.Info().Str("job", j.name).Msg("job scheduled")
	timer := time.NewTimer(time.Until(j.next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("job", j.name).Msg("job stopped")
			return
		case <-timer.C:
			s.fire(ctx, j)
			timer.Reset(time.Until(j.next(time.Now())))
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, j *job) {
	if !atomic.CompareAndSwapInt32(&j.running, 0, 1) {
		s.log.Warn().Str("job", j.name).Msg("previous run still active, skipping")
		metrics.IncJobRun(j.name, "skipped")
		return
	}
	defer atomic.StoreInt32(&j.running, 0)

	start := time.Now()
	err := j.run(ctx)
	metrics.ObserveJobDuration(j.name, time.Since(start).Seconds())
	if err != nil {
		metrics.IncJobRun(j.name, "error")
		s.log.Error().Err(err).Str("job", j.name).Msg("job run failed")
		return
	}
	metrics.IncJobRun(j.name, "ok")
	s.log.Info().Str("job", j.name).Dur("took", time.Since(start)).Msg("job run complete")
}

// Every fires on a fixed interval.
func Every(d time.Duration) NextFunc {
	return func(now time.Time) time.Time { return now.Add(d) }
}

// DailyAt fires once a day at the given wall-clock time.
func DailyAt(hour, min int) NextFunc {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// WeeklyAt fires once a week on the given weekday.
func WeeklyAt(weekday time.Weekday, hour int) NextFunc {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		for next.Weekday() != weekday || !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// MonthlyAt fires once a month on the given day of month. Days past the
// end of a month roll into the next one, which is fine for day 1.
func MonthlyAt(day, hour int) NextFunc {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), day, hour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = time.Date(now.Year(), now.Month()+1, day, hour, 0, 0, 0, now.Location())
		}
		return next
	}
}
