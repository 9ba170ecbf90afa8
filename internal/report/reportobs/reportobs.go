package reportobs

import (
	"context"
	"time"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/trace"
	"salgsmester/internal/types"
)

type observableReporter struct {
	reporter interfaces.Reporter
}

var _ interfaces.Reporter = (*observableReporter)(nil)

func Wrap(reporter interfaces.Reporter) interfaces.Reporter {
	return &observableReporter{
		reporter: reporter,
	}
}

func (or *observableReporter) WriteToFile(text, name string) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "report.WriteToFile")
	defer span.End()

	path, err := or.reporter.WriteToFile(text, name)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to write weekly report", err, "name", name)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Weekly report written", "path", path, "bytes", len(text))
	return path, nil
}

func (or *observableReporter) WriteSummaryCSV(entries []types.TradeLogEntry, name string) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "report.WriteSummaryCSV")
	defer span.End()

	path, err := or.reporter.WriteSummaryCSV(entries, name)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trade summary generation failed", err, "entries", len(entries))
		return "", err
	}

	if path == "" {
		logger.InfoSkip(ctx, 1, "No trades to summarise")
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Trade summary generated", "csv_path", path, "entries", len(entries))
	return path, nil
}

func (or *observableReporter) SendEmail(ctx context.Context, text string) error {
	ctx, span := trace.StartSpan(ctx, "report.SendEmail")
	defer span.End()

	start := time.Now()
	if err := or.reporter.SendEmail(ctx, text); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Report e-mail failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	logger.DebugSkip(ctx, 1, "Report e-mail step finished",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (or *observableReporter) CompressOlder(days int) error {
	ctx, span := trace.StartSpan(context.Background(), "report.CompressOlder")
	defer span.End()

	if err := or.reporter.CompressOlder(days); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Report retention sweep failed", err, "retention_days", days)
		return err
	}

	logger.DebugSkip(ctx, 1, "Report retention sweep completed", "retention_days", days)
	return nil
}
