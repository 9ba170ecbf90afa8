// Package strategy holds the momentum rebalancing rules.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/risk"
	"salgsmester/internal/types"
)

const (
	ReasonNotDue = "rebalance not yet due"

	// weeklyTradeWindow is how long the portfolio may go without a trade before the
	// minimum weekly trade target is at risk.
	weeklyTradeWindow = 7 * 24 * time.Hour
)

// Momentum sells positions that reached the weekly growth target and buys the strongest
// risk-acceptable movers, a few per sector. It is immutable; the rebalance clock lives
// in the types.StrategyState the caller passes in.
type Momentum struct {
	targets      types.StrategyTargets
	fees         types.FeeStructure
	maxPerSector int
}

var _ interfaces.Strategy = (*Momentum)(nil)

// NewMomentum returns a strategy capping candidates at maxPerSector per sector
// (risk.DefaultMaxPerSector when not positive).
func NewMomentum(targets types.StrategyTargets, fees types.FeeStructure, maxPerSector int) *Momentum {
	if maxPerSector <= 0 {
		maxPerSector = risk.DefaultMaxPerSector
	}
	return &Momentum{targets: targets, fees: fees, maxPerSector: maxPerSector}
}

func (m *Momentum) Targets() types.StrategyTargets {
	return m.targets
}

// ShouldRebalance is true before the first rebalance and once the cadence has elapsed since the last one.
func (m *Momentum) ShouldRebalance(state types.StrategyState, now time.Time) bool {
	if state.IsZero() {
		return true
	}
	return now.Sub(state.LastRebalance) >= m.targets.RebalanceCadence
}

// Evaluate decides the trades for now. When a rebalance is not due it returns an empty
// decision and state untouched; otherwise the returned state records now as the last rebalance.
func (m *Momentum) Evaluate(ctx context.Context, state types.StrategyState, now time.Time, portfolio *types.Portfolio, instruments []types.InstrumentSnapshot) (types.TradeDecision, types.StrategyState) {
	if !m.ShouldRebalance(state, now) {
		logger.Debug(ctx, "Rebalance not due",
			"last_rebalance", state.LastRebalance,
			"cadence", m.targets.RebalanceCadence.String(),
		)
		return types.TradeDecision{Reason: ReasonNotDue}, state
	}

	portfolioRisk := risk.EstimatePortfolioRisk(portfolio, m.fees)

	growth := make([]types.InstrumentSnapshot, 0, len(instruments))
	for _, inst := range instruments {
		if inst.LastPrice > 0 {
			growth = append(growth, inst)
		}
	}
	sort.SliceStable(growth, func(i, j int) bool {
		return growth[i].ExpectedShortTermGrowth() > growth[j].ExpectedShortTermGrowth()
	})

	diversified := risk.DiversifyCandidates(growth, m.maxPerSector)

	var sells []string
	if portfolio != nil {
		for _, pos := range portfolio.Positions() {
			if pos.UnrealisedReturnPct() >= m.targets.WeeklyGrowthTarget {
				sells = append(sells, pos.Instrument.Symbol)
			}
		}
	}

	filtered := make([]types.InstrumentSnapshot, 0, len(diversified))
	for _, inst := range diversified {
		score := risk.ScoreInstrumentRiskDefault(inst, m.fees)
		if score > m.targets.MaxPortfolioVolatility {
			logger.Risk(ctx, inst.Symbol, "risk_ceiling",
				"risk_score", score,
				"max_volatility", m.targets.MaxPortfolioVolatility,
			)
			continue
		}
		filtered = append(filtered, inst)
	}

	decision := types.TradeDecision{
		BuyCandidates: filtered,
		SellSymbols:   sells,
		Reason:        fmt.Sprintf("portfolio volatility: %.2f; selected candidates: %d", portfolioRisk.Volatility, len(filtered)),
	}

	logger.Decision(ctx, len(filtered), len(sells), decision.Reason,
		"downside_risk", portfolioRisk.DownsideRisk,
		"exposure_concentration", portfolioRisk.ExposureConcentration,
		"universe", len(instruments),
	)

	return decision, types.StrategyState{LastRebalance: now}
}

// RequiredWeeklyTrade reports whether the portfolio has gone a week without trading.
// It is advisory; Evaluate does not act on it. A MinTradesPerWeek of zero disables it.
func (m *Momentum) RequiredWeeklyTrade(now time.Time, portfolio *types.Portfolio) bool {
	if m.targets.MinTradesPerWeek <= 0 {
		return false
	}
	if portfolio == nil || !portfolio.HasTraded() {
		return true
	}
	return now.Sub(portfolio.LastTradeTime) >= weeklyTradeWindow
}
