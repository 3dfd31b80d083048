// Package scheduler fires the daily scheduled run at a fixed time.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jobgram/jobgram/internal/model"
)

// Runner starts one ingestion run. Implemented by the scrape coordinator.
type Runner interface {
	Run(ctx context.Context, runID string) (*model.RunSummary, error)
}

// Scheduler wraps robfig/cron around the coordinator. Each tick runs
// synchronously to completion within its own timeout-bounded context.
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	spec       string
	runTimeout time.Duration
	logger     *slog.Logger
}

// New creates a scheduler for the given cron spec (e.g. "0 9 * * *").
func New(runner Runner, spec string, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		runner:     runner,
		spec:       spec,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start registers the scrape job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runOnce)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)
	return nil
}

// Stop shuts the cron loop down; a run already in flight finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	runID := uuid.New().String()
	s.logger.Info("scheduled run starting", "run_id", runID)

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	// Run errors are already recorded in the progress record and the
	// summary report; here they only need a log line.
	if _, err := s.runner.Run(ctx, runID); err != nil {
		s.logger.Error("scheduled run failed", "run_id", runID, "error", err)
	}
}
