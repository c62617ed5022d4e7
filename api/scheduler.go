/*
scheduler.go - Periodic batch refresh

PURPOSE:
  Re-runs stale batch reports on a timer. Hours imports land all day;
  the dashboard wants a fresh snapshot every morning without someone
  pressing the button. The scheduler checks the newest batch per
  registered employer/year and re-runs it when its inputs have moved.

SEE ALSO:
  - report/runner.go: RunBatch, BatchStatus
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/workforce"
)

// Target is one employer/year combination the scheduler keeps fresh.
type Target struct {
	EmployerID workforce.EmployerID
	TaxYear    int
}

// Scheduler refreshes stale batches at a fixed interval.
type Scheduler struct {
	runner   *report.Runner
	batches  report.BatchStore
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	targets map[Target]struct{}
}

func NewScheduler(runner *report.Runner, batches report.BatchStore, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		batches:  batches,
		interval: interval,
		log:      log,
		targets:  make(map[Target]struct{}),
	}
}

// Register adds an employer/year to the refresh rotation.
func (s *Scheduler) Register(t Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[t] = struct{}{}
}

// Start runs the refresh loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	s.mu.Lock()
	targets := make([]Target, 0, len(s.targets))
	for t := range s.targets {
		targets = append(targets, t)
	}
	s.mu.Unlock()

	for _, t := range targets {
		if err := s.refresh(ctx, t); err != nil {
			s.log.Error("scheduled batch refresh failed",
				zap.String("employer", string(t.EmployerID)),
				zap.Int("taxYear", t.TaxYear),
				zap.Error(err),
			)
		}
	}
}

// refresh re-runs the target when its newest batch is stale or absent.
func (s *Scheduler) refresh(ctx context.Context, t Target) error {
	existing, err := s.batches.ListBatches(ctx, t.EmployerID, t.TaxYear)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		latest := existing[len(existing)-1]
		status, err := s.runner.BatchStatus(ctx, latest.ID)
		if err != nil {
			return err
		}
		if !status.Stale {
			return nil
		}
	}

	batch, err := s.runner.RunBatch(ctx, t.EmployerID, t.TaxYear)
	if err != nil {
		return err
	}
	s.log.Info("scheduled batch refresh complete",
		zap.String("employer", string(t.EmployerID)),
		zap.Int("taxYear", t.TaxYear),
		zap.String("batch", batch.ID),
	)
	return nil
}
