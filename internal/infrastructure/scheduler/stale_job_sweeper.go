package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultSweepBatchSize = 100

// StaleJobFailer fails Running jobs that started before cutoff
type StaleJobFailer interface {
	FailStaleJobs(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// StaleJobSweeperConfig holds configuration for the stale job sweep
type StaleJobSweeperConfig struct {
	Interval time.Duration
	// JobTimeout plus Grace is the age after which a Running job is
	// considered abandoned
	JobTimeout time.Duration
	Grace      time.Duration
	BatchSize  int
}

// StaleJobSweeper fails jobs left Running by a crashed process or a remote
// worker that never reported back.
type StaleJobSweeper struct {
	config StaleJobSweeperConfig
	jobs   StaleJobFailer
	now    func() time.Time
	logger *zap.Logger
	loop   *periodic
}

// NewStaleJobSweeper creates a sweeper
func NewStaleJobSweeper(cfg StaleJobSweeperConfig, jobs StaleJobFailer, logger *zap.Logger) *StaleJobSweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultSweepBatchSize
	}
	s := &StaleJobSweeper{
		config: cfg,
		jobs:   jobs,
		now:    time.Now,
		logger: logger.Named("stale_job_sweeper"),
	}
	s.loop = &periodic{
		name:     "stale_job_sweeper",
		interval: cfg.Interval,
		logger:   s.logger,
		fn: func(ctx context.Context) {
			_, _ = s.Sweep(ctx)
		},
	}
	return s
}

// Start starts the sweep loop
func (s *StaleJobSweeper) Start(ctx context.Context) error {
	return s.loop.start(ctx)
}

// Stop stops the sweep loop
func (s *StaleJobSweeper) Stop(ctx context.Context) error {
	return s.loop.stop(ctx)
}

// Cutoff returns the start time before which Running jobs are stale
func (s *StaleJobSweeper) Cutoff() time.Time {
	return s.now().Add(-(s.config.JobTimeout + s.config.Grace))
}

// Sweep fails stale jobs in batches until none are left.
func (s *StaleJobSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.Cutoff()
	total := 0
	for {
		n, err := s.jobs.FailStaleJobs(ctx, cutoff, s.config.BatchSize)
		total += n
		if err != nil {
			s.logger.Error("Stale job sweep failed", zap.Int("failed_so_far", total), zap.Error(err))
			return total, err
		}
		if n < s.config.BatchSize {
			break
		}
	}
	if total > 0 {
		s.logger.Warn("Failed stale collection jobs",
			zap.Int("count", total),
			zap.Time("cutoff", cutoff),
		)
	}
	return total, nil
}
