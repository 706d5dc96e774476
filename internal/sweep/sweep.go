// Package sweep runs the periodic status-repair job: a cron-scheduled pass of
// SyncAllListingStatuses that converges any listing whose availability status
// drifted from its booking set (missed trigger, failed write, manual edit).
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rentvault/booking-admission/internal/metrics"
	"github.com/rentvault/booking-admission/internal/service"
)

// Scheduler owns the cron instance driving the repair sweep.
type Scheduler struct {
	cron     *cron.Cron
	status   *service.StatusService
	interval time.Duration
}

// NewScheduler creates a sweep scheduler. intervalMin is the sweep period in
// minutes; non-positive values fall back to 15.
func NewScheduler(status *service.StatusService, intervalMin int) *Scheduler {
	if intervalMin <= 0 {
		intervalMin = 15
	}
	return &Scheduler{
		cron:     cron.New(),
		status:   status,
		interval: time.Duration(intervalMin) * time.Minute,
	}
}

// Start registers the sweep job and starts the cron loop. The first sweep
// runs on the first tick, not immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("status sweep scheduled every %s", s.interval)
	return nil
}

// RunOnce executes a single sweep, logging its outcome and recording its
// duration. Per-listing failures are already isolated inside the sync pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	updated, err := s.status.SyncAllListingStatuses(ctx)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("status sweep finished with errors (updated %d): %v", updated, err)
		return
	}
	log.Printf("status sweep complete: %d listing(s) corrected in %s", updated, time.Since(start))
}

// Stop halts the cron loop, waiting for a running sweep to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
