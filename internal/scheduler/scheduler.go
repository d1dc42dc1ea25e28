// Package scheduler triggers the orchestrator on a fixed cron cadence.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/derickschaefer/undertow/internal/orchestrator"
)

// DefaultSchedule is the cron cadence spec.md requires: every 6 hours,
// UTC.
const DefaultSchedule = "0 */6 * * *"

// Scheduler wraps a cron.Cron, running the orchestrator's cron-triggered
// refresh on the configured cadence with panic containment so one failed
// run cannot crash the process.
type Scheduler struct {
	cron   *cron.Cron
	orch   *orchestrator.Orchestrator
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Scheduler registered on schedule (use DefaultSchedule for
// the standard cadence).
func New(orch *orchestrator.Orchestrator, schedule string) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	s := &Scheduler{cron: c, orch: orch, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(schedule, s.runOnce); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	slog.Info("cron refresh starting")
	res := s.orch.Run(s.ctx, "cron")
	if !res.OK && !res.Skipped {
		slog.Error("cron refresh failed", "run_id", res.RunID, "error", res.Error)
		return
	}
	if res.Skipped {
		slog.Warn("cron refresh skipped", "run_id", res.RunID, "reason", res.Reason)
		return
	}
	slog.Info("cron refresh succeeded", "run_id", res.RunID, "version", res.Version)
}

// Start begins the cron scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler, waiting for any in-flight run to return, and
// cancels the context passed to future runs.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.cancel()
}

