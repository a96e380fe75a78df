package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"homework_notifier/internal/domain"
)

// Poller runs one poll cycle.
type Poller interface {
	Poll(ctx context.Context) (*domain.PollStats, error)
}

type Config struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	CycleTimeout time.Duration
}

// Scheduler repeats poll cycles until its context is cancelled. A failed
// cycle is followed by the error backoff, a successful one by the interval.
type Scheduler struct {
	poller Poller
	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewScheduler(poller Poller, cfg Config, clk clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		poller: poller,
		cfg:    cfg,
		clock:  clk,
		logger: logger.With("component", "scheduler"),
	}
}

// Start blocks until ctx is done and returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"error_backoff", s.cfg.ErrorBackoff,
	)

	for {
		wait := s.cfg.Interval
		if err := s.runCycle(ctx); err != nil {
			wait = s.cfg.ErrorBackoff
		}

		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrUnclassified, r)
			s.logger.Error("poll cycle panicked", "kind", domain.Kind(err), "error", err)
		}
	}()

	cycleCtx := ctx
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	if _, err := s.poller.Poll(cycleCtx); err != nil {
		s.logger.Error("poll failed",
			"kind", domain.Kind(err),
			"error", err,
			"retry_in", s.cfg.ErrorBackoff,
		)
		return err
	}

	return nil
}
