package interfaces

import (
	"context"
	"time"

	"salgsmester/internal/types"
)

// Strategy decides what to trade. Implementations hold no mutable state; the caller owns it.
type Strategy interface {
	ShouldRebalance(state types.StrategyState, now time.Time) bool
	Evaluate(ctx context.Context, state types.StrategyState, now time.Time, portfolio *types.Portfolio, instruments []types.InstrumentSnapshot) (types.TradeDecision, types.StrategyState)
	RequiredWeeklyTrade(now time.Time, portfolio *types.Portfolio) bool
}
