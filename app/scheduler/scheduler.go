package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ugboard/yt-pull/app/pipeline"
)

// runTimeout bounds one scheduled run so a stuck downstream cannot hold a
// worker slot past the next tick.
const runTimeout = 10 * time.Minute

// Scheduler invokes the pipeline on a cron schedule. Overlap protection
// lives in the Runner itself; the scheduler just ticks.
type Scheduler struct {
	cron   *cron.Cron
	runner *pipeline.Runner
}

func New(runner *pipeline.Runner, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	slog.Debug("Scheduled pipeline run starting")
	result := s.runner.RunOnce(ctx)
	if result.Failed() {
		slog.Error("Scheduled pipeline run failed to deliver batch", "error", result.PushError)
	}
}
