package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"salgsmester/internal/logger"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a new scheduler. Jobs run with ctx.
func New(ctx context.Context) *Scheduler {
	l := cronLogger{ctx: ctx}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx: ctx,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 30 9 * * MON-FRI" - 09:30 on weekdays
//   - "0 0 */4 * * *"      - Every 4 hours
//   - "@every 30m"         - Every 30 minutes
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		logger.Debug(s.ctx, "Running job", "job", job.Name())

		if err := job.Run(s.ctx); err != nil {
			logger.ErrorWithErr(s.ctx, "Job failed", err, "job", job.Name())
		} else {
			logger.Debug(s.ctx, "Job completed", "job", job.Name())
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q for %s: %w", schedule, job.Name(), err)
	}

	logger.Info(s.ctx, "Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	logger.Info(s.ctx, "Running job immediately", "job", job.Name())
	return job.Run(s.ctx)
}

// cronLogger routes cron's own messages into the structured logger.
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithErr(l.ctx, "cron: "+msg, err, keysAndValues...)
}
