// Package scheduler runs the periodic sweep that re-marks open
// positions and applies auto-close conditions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"papertrader/internal/engine"
	"papertrader/internal/errors"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context)
}

// Scheduler wraps a cron runner with second-level resolution.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a job to run on the given interval.
func (s *Scheduler) AddJob(ctx context.Context, job Job, interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)
	_, err := s.cron.AddFunc(spec, func() {
		job.Run(ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "scheduling %s", job.Name())
	}
	s.log.Info().Str("job", job.Name()).Dur("interval", interval).Msg("job scheduled")
	return nil
}

// Start begins running scheduled jobs in their own goroutines.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// SweepJob drives the engine sweep.
type SweepJob struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewSweepJob creates the sweep job.
func NewSweepJob(eng *engine.Engine, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		engine: eng,
		log:    log.With().Str("component", "sweep").Logger(),
	}
}

// Name implements Job.
func (j *SweepJob) Name() string { return "position-sweep" }

// Run implements Job.
func (j *SweepJob) Run(ctx context.Context) {
	closed := j.engine.Sweep(ctx)
	for _, record := range closed {
		j.log.Info().
			Str("trade_id", record.ID).
			Str("symbol", record.Symbol).
			Str("reason", string(record.CloseReason)).
			Float64("realized_pnl", record.RealizedPnL).
			Msg("position auto-closed")
	}
}
