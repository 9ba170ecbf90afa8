package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/metrics"
	"salgsmester/internal/report"
	"salgsmester/internal/types"
)

// CycleJob runs one trading cycle and delivers the weekly report afterwards.
type CycleJob struct {
	Engine   interfaces.Engine
	Reporter interfaces.Reporter
	Metrics  *metrics.Metrics
	// MetricsFile, when set, receives a Prometheus textfile snapshot after each run.
	MetricsFile string
	// RetentionDays compresses report files older than this. Zero keeps everything as is.
	RetentionDays int
	Clock         func() time.Time
}

var _ Job = (*CycleJob)(nil)

func (j *CycleJob) Name() string { return "rebalance" }

func (j *CycleJob) Run(ctx context.Context) error {
	_, err := j.Execute(ctx)
	return err
}

// Execute runs the cycle, then writes the report and the CSV summary and sends the email.
// The report is delivered even when the cycle failed part way, since trades booked before
// the failure are in the log. All errors are joined.
func (j *CycleJob) Execute(ctx context.Context) (*types.CycleResult, error) {
	now := time.Now
	if j.Clock != nil {
		now = j.Clock
	}

	op := logger.StartOperation(ctx, "cycle_job", "job", j.Name())
	ctx = op.Context()

	res, cycleErr := j.Engine.RunCycle(ctx, now())
	if cycleErr != nil {
		cycleErr = fmt.Errorf("cycle: %w", cycleErr)
	}

	errs := []error{cycleErr, j.deliver(ctx)}

	if j.MetricsFile != "" && j.Metrics != nil {
		if err := j.Metrics.WriteTextfile(j.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		op.EndWithError(err)
	} else {
		op.End()
	}
	return res, err
}

func (j *CycleJob) deliver(ctx context.Context) error {
	if j.Reporter == nil {
		return nil
	}
	text := j.Engine.WeeklySummary()

	path, err := j.Reporter.WriteToFile(text, report.DefaultReport)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info(ctx, "Weekly report written", "path", path)

	csvPath, err := j.Reporter.WriteSummaryCSV(j.Engine.TradeLog(), report.DefaultCSV)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if csvPath != "" {
		logger.Info(ctx, "Trade summary written", "path", csvPath)
	}

	if err := j.Reporter.SendEmail(ctx, text); err != nil {
		return err
	}

	if j.RetentionDays > 0 {
		if err := j.Reporter.CompressOlder(j.RetentionDays); err != nil {
			return fmt.Errorf("compress reports: %w", err)
		}
	}
	return nil
}
