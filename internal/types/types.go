package types

import (
	"time"
)

// Order sides accepted by the brokerage.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// OrderTypeMarket is the only order type the engine places.
const OrderTypeMarket = "MARKET"

// InstrumentSnapshot is an immutable market observation for one tradable instrument.
type InstrumentSnapshot struct {
	Symbol          string    `json:"symbol" yaml:"symbol"`
	Name            string    `json:"name" yaml:"name"`
	LastPrice       float64   `json:"last_price" yaml:"last_price"`
	DailyChangePct  float64   `json:"daily_change_pct" yaml:"daily_change_pct"`
	WeeklyChangePct float64   `json:"weekly_change_pct" yaml:"weekly_change_pct"`
	Volatility      float64   `json:"volatility" yaml:"volatility"`
	Sector          string    `json:"sector,omitempty" yaml:"sector"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
}

// UnknownSector groups instruments that carry no sector tag.
const UnknownSector = "unknown"

// ExpectedShortTermGrowth is a momentum score discounted by risk.
// The discount factor is floored at 0.1 so very volatile names keep a sign.
func (i InstrumentSnapshot) ExpectedShortTermGrowth() float64 {
	momentum := i.DailyChangePct*0.4 + i.WeeklyChangePct*0.6
	riskAdjustment := 1.0 - i.Volatility
	if riskAdjustment < 0.1 {
		riskAdjustment = 0.1
	}
	return momentum * riskAdjustment
}

// SectorOrUnknown returns the sector tag, or UnknownSector when empty.
func (i InstrumentSnapshot) SectorOrUnknown() string {
	if i.Sector == "" {
		return UnknownSector
	}
	return i.Sector
}

// Position is one open holding.
type Position struct {
	Instrument InstrumentSnapshot `json:"instrument"`
	Quantity   float64            `json:"quantity"`
	EntryPrice float64            `json:"entry_price"`
	EntryTime  time.Time          `json:"entry_time"`
}

// MarketValue returns the position value at the last traded price.
func (p Position) MarketValue() float64 {
	return p.Instrument.LastPrice * p.Quantity
}

// UnrealisedReturnPct returns the fractional return since entry, or 0 when the entry price is 0.
func (p Position) UnrealisedReturnPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.Instrument.LastPrice - p.EntryPrice) / p.EntryPrice
}

// FeeStructure is the brokerage fee schedule: a fixed amount per trade plus a rate on notional.
type FeeStructure struct {
	FixedFee     float64 `json:"fixed_fee" yaml:"fixed_fee"`
	VariableRate float64 `json:"variable_fee_rate" yaml:"variable_fee_rate"`
}

// Fee returns the fee charged on a trade with the given gross notional.
func (f FeeStructure) Fee(gross float64) float64 {
	return f.FixedFee + gross*f.VariableRate
}

// StrategyTargets holds the goals the momentum strategy works towards.
// They are targets, not guarantees.
type StrategyTargets struct {
	WeeklyGrowthTarget     float64
	MaxPortfolioVolatility float64
	MinTradesPerWeek       int
	RebalanceCadence       time.Duration
}

// RiskMetrics summarises portfolio level risk.
type RiskMetrics struct {
	Volatility            float64 `json:"volatility"`
	DownsideRisk          float64 `json:"downside_risk"`
	ExposureConcentration float64 `json:"exposure_concentration"`
}

// TradeDecision is the output of one strategy evaluation. It is consumed within the cycle.
type TradeDecision struct {
	BuyCandidates []InstrumentSnapshot `json:"buy_candidates"`
	SellSymbols   []string             `json:"sell_symbols"`
	Reason        string               `json:"reason"`
}

// IsEmpty reports whether the decision asks for no trades at all.
func (d TradeDecision) IsEmpty() bool {
	return len(d.BuyCandidates) == 0 && len(d.SellSymbols) == 0
}

// StrategyState is the mutable part of the strategy, threaded through evaluations by the caller.
type StrategyState struct {
	LastRebalance time.Time `json:"last_rebalance"`
}

// IsZero reports whether the strategy has never rebalanced.
func (s StrategyState) IsZero() bool {
	return s.LastRebalance.IsZero()
}

// TradeLogEntry records an executed action. Entries are never modified after creation.
type TradeLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Note      string    `json:"note"`
}

type OrderReq struct {
	Symbol    string   `json:"symbol"`
	Side      string   `json:"side"`
	Quantity  float64  `json:"quantity"`
	OrderType string   `json:"order_type"`
	Price     *float64 `json:"price,omitempty"`
	ClientRef string   `json:"client_ref,omitempty"`
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
