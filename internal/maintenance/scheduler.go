// Package maintenance runs the periodic session sweep.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
)

const sweepTimeout = time.Minute

// Scheduler sweeps idle sessions on a cron schedule. Request traffic never
// triggers a sweep.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  session.Sweeper
	maxAge   time.Duration
	schedule string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewScheduler validates schedule (standard 5-field cron or descriptors such
// as "@every 1h") and registers the sweep.
func NewScheduler(sweeper session.Sweeper, schedule string, maxAge time.Duration, logger *slog.Logger, m *metrics.Metrics) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper:  sweeper,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
		metrics:  m,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce sweeps immediately and returns how many sessions were removed.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	removed, err := s.sweeper.Sweep(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return 0, err
	}
	s.metrics.SessionsSwept(removed)
	s.logger.Info("session sweep finished", "removed", removed, "max_age", s.maxAge.String())
	return removed, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.logger.Info("sweep scheduler started", "schedule", s.schedule, "max_age", s.maxAge.String())
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("sweep still running at shutdown")
	}
}

// Next is the next scheduled run, zero if the scheduler is not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
