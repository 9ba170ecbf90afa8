package types

import "time"

// Action outcomes recorded for each attempted trade.
const (
	OutcomeExecuted = "EXECUTED"
	OutcomeSkipped  = "SKIPPED"
	OutcomeFailed   = "FAILED"
)

// ActionOutcome describes what happened to one sell or buy the decision asked for.
type ActionOutcome struct {
	Side     string  `json:"side"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Outcome  string  `json:"outcome"`
	Detail   string  `json:"detail,omitempty"`
	OrderID  string  `json:"order_id,omitempty"`
}

// Execution counts the independently committed steps of one cycle.
// Attempted counts actions that reached order placement, Completed those that were
// placed and booked, and Skipped those dropped by a pre-order check.
type Execution struct {
	Attempted int             `json:"attempted"`
	Completed int             `json:"completed"`
	Skipped   int             `json:"skipped"`
	Actions   []ActionOutcome `json:"actions"`
}

// Partial reports whether some attempted action did not complete.
func (e Execution) Partial() bool {
	return e.Completed < e.Attempted
}

// CycleResult is returned by one run of the portfolio manager.
type CycleResult struct {
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Portfolio *Portfolio    `json:"-"`
	Decision  TradeDecision `json:"decision"`
	Risk      RiskMetrics   `json:"risk"`
	Execution Execution     `json:"execution"`
}
