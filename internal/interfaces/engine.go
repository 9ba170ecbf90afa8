package interfaces

import (
	"context"
	"time"

	"salgsmester/internal/types"
)

// Engine runs trading cycles and exposes what has been traded so far.
type Engine interface {
	RunCycle(ctx context.Context, now time.Time) (*types.CycleResult, error)
	WeeklySummary() string
	TradeLog() []types.TradeLogEntry
	State() types.StrategyState
}
