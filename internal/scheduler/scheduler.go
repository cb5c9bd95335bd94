package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Poller runs one poll cycle.
type Poller interface {
	Poll(ctx context.Context) error
}

// Scheduler calls a Poller on a fixed interval, starting immediately. Runs
// never overlap: a tick that fires while a poll is still running is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	poller    Poller
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
}

// New creates a Scheduler. Each run gets its own timeout deadline.
func New(p Poller, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		poller:    p,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the poll job and starts the underlying scheduler. Polls
// in flight are cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.run(runCtx)
	})
	if err != nil {
		cancel()
		return err
	}

	s.logger.Info("scheduler started", "interval", s.interval, "timeout", s.timeout)
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.poller.Poll(pollCtx); err != nil {
		s.logger.Warn("scheduled poll failed", "error", err)
	}
}

// Stop cancels in-flight polls and stops future runs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}
