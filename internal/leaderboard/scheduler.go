package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers build cycles on a fixed interval. Cycles that are
// still running when the next tick fires are skipped, not queued.
type Scheduler struct {
	builder  *Builder
	interval time.Duration
	logger   *log.Logger
	cron     *cron.Cron
}

// NewScheduler creates a scheduler that runs a cycle every interval.
func NewScheduler(builder *Builder, interval time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		builder:  builder,
		interval: interval,
		logger:   logger,
	}
}

// Start runs an immediate first cycle in the background, then ticks on
// the configured interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("schedule build cycle: %w", err)
	}

	go s.run(ctx)
	s.cron.Start()
	s.logger.Printf("scheduler started: cycle every %s", s.interval)

	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.builder.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Printf("tick skipped: previous cycle still running")
			return
		}
		s.logger.Printf("cycle failed: %v", err)
	}
}
