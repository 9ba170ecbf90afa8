package engineobs

import (
	"context"
	"time"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/trace"
	"salgsmester/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) RunCycle(ctx context.Context, now time.Time) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting trading cycle",
		"now", now,
	)

	result, err := oe.engine.RunCycle(ctx, now)
	if err != nil {
		fields := []any{"duration_ms", time.Since(start).Milliseconds()}
		if result != nil {
			fields = append(fields,
				"cycle_id", result.CycleID,
				"attempted", result.Execution.Attempted,
				"completed", result.Execution.Completed,
			)
		}
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err, fields...)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"cycle_id", result.CycleID,
		"reason", result.Decision.Reason,
		"buy_candidates", len(result.Decision.BuyCandidates),
		"sell_symbols", len(result.Decision.SellSymbols),
		"attempted", result.Execution.Attempted,
		"completed", result.Execution.Completed,
		"skipped", result.Execution.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (oe *observableEngine) WeeklySummary() string {
	return oe.engine.WeeklySummary()
}

func (oe *observableEngine) TradeLog() []types.TradeLogEntry {
	return oe.engine.TradeLog()
}

func (oe *observableEngine) State() types.StrategyState {
	return oe.engine.State()
}
