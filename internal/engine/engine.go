// Package engine runs the trading cycle: fetch a fresh snapshot, ask the strategy what to do,
// and apply the decision to the portfolio sells first so freed cash funds the buys.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/metrics"
	"salgsmester/internal/report"
	"salgsmester/internal/risk"
	"salgsmester/internal/tradelog"
	"salgsmester/internal/types"
)

// Notes written to the trade log.
const (
	NoteSell = "Måloppnåelse utløste salg"
	NoteBuy  = "Strategivalg basert på forventet vekst"
)

type Manager struct {
	cfg      Options
	broker   interfaces.Broker
	strategy interfaces.Strategy
	clock    func() time.Time
	metrics  *metrics.Metrics
	log      *tradelog.Log

	positions *positionManager
	cash      *cashGuard
	orders    *orderExecutor

	// cycleMu serialises cycles; mu guards state for readers outside the cycle.
	cycleMu sync.Mutex
	mu      sync.RWMutex
	state   types.StrategyState
}

var _ interfaces.Engine = (*Manager)(nil)

// RunCycle runs one trading cycle at now.
//
// A brokerage error stops the cycle. The result is returned with the error: trades booked
// before the failure stay in its portfolio and execution counts, nothing is rolled back.
func (m *Manager) RunCycle(ctx context.Context, now time.Time) (*types.CycleResult, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	start := time.Now()
	res := &types.CycleResult{CycleID: uuid.NewString(), StartedAt: now}
	ctx = withCycle(ctx, res.CycleID)

	err := m.runCycle(ctx, now, res)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailed
	case res.Execution.Partial():
		outcome = metrics.OutcomePartial
	}
	m.metrics.CycleFinished(outcome, time.Since(start))

	if res.Portfolio != nil {
		res.Risk = risk.EstimatePortfolioRisk(res.Portfolio, m.cfg.Fees)
		weeklyTradeDue := m.RequiredWeeklyTrade(now, res.Portfolio)
		m.metrics.ObservePortfolio(res.Portfolio.TotalValue(), res.Portfolio.Cash, res.Risk.Volatility, res.Portfolio.Len())
		m.metrics.ObserveWeeklyTradeDue(weeklyTradeDue)
		logger.Info(ctx, "Portfolio after cycle",
			"total_value", res.Portfolio.TotalValue(),
			"cash", res.Portfolio.Cash,
			"positions", res.Portfolio.Len(),
			"volatility", res.Risk.Volatility,
			"exposure_by_sector", res.Portfolio.ExposureBySector(),
			"weekly_trade_due", weeklyTradeDue,
		)
	}
	return res, err
}

func (m *Manager) runCycle(ctx context.Context, now time.Time, res *types.CycleResult) error {
	portfolio, err := m.broker.FetchPortfolio(ctx)
	if err != nil {
		return fmt.Errorf("fetch portfolio: %w", err)
	}
	res.Portfolio = portfolio

	instruments, err := m.broker.FetchInstruments(ctx)
	if err != nil {
		return fmt.Errorf("fetch instruments: %w", err)
	}
	logger.Debug(ctx, "Snapshot fetched",
		"positions", portfolio.Len(),
		"cash", portfolio.Cash,
		"instruments", len(instruments),
	)

	decision, state := m.strategy.Evaluate(ctx, m.State(), now, portfolio, instruments)
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	res.Decision = decision

	if decision.IsEmpty() {
		return nil
	}

	if err := m.executeSells(ctx, portfolio, decision.SellSymbols, &res.Execution); err != nil {
		return err
	}
	return m.executeBuys(ctx, portfolio, decision.BuyCandidates, &res.Execution)
}

func (m *Manager) executeSells(ctx context.Context, portfolio *types.Portfolio, symbols []string, exec *types.Execution) error {
	for _, symbol := range symbols {
		pos, ok := portfolio.Position(symbol)
		if !ok {
			// Stale decision: nothing to sell.
			continue
		}
		qty := pos.Quantity
		price := pos.Instrument.LastPrice

		exec.Attempted++
		resp, err := m.orders.sell(ctx, symbol, qty, price, NoteSell)
		if err != nil {
			exec.Actions = append(exec.Actions, failed(types.SideSell, symbol, qty, price, err))
			return fmt.Errorf("sell %s: %w", symbol, err)
		}

		proceeds := qty * price
		if m.cfg.SellNetOfFees {
			proceeds = m.broker.EstimateNetSellProceeds(price, qty)
		}
		m.positions.close(portfolio, symbol, m.clock())
		m.cash.credit(portfolio, proceeds)

		exec.Completed++
		exec.Actions = append(exec.Actions, types.ActionOutcome{
			Side: types.SideSell, Symbol: symbol, Quantity: qty, Price: price,
			Outcome: types.OutcomeExecuted, OrderID: resp.OrderID,
		})
		m.metrics.OrderPlaced(types.SideSell)
	}
	return nil
}

func (m *Manager) executeBuys(ctx context.Context, portfolio *types.Portfolio, candidates []types.InstrumentSnapshot, exec *types.Execution) error {
	if portfolio.Cash <= 0 || len(candidates) == 0 {
		return nil
	}
	budget := portfolio.Cash / float64(len(candidates))

	for _, c := range candidates {
		qty := m.cash.affordableQuantity(budget, c.LastPrice)
		if qty <= 0 {
			m.skip(ctx, exec, c, 0, skipBudget, fmt.Sprintf("budget %.2f below unit price", budget))
			continue
		}
		if m.positions.holds(portfolio, c.Symbol) {
			dup := &types.DuplicatePositionError{Symbol: c.Symbol}
			m.skip(ctx, exec, c, qty, skipDuplicate, dup.Error())
			continue
		}
		cost := m.broker.EstimateTotalBuyCost(c.LastPrice, qty)
		if !m.cash.covers(portfolio, cost) {
			m.skip(ctx, exec, c, qty, skipCash, fmt.Sprintf("cost %.2f exceeds cash %.2f", cost, portfolio.Cash))
			continue
		}

		exec.Attempted++
		resp, err := m.orders.buy(ctx, c.Symbol, qty, c.LastPrice, NoteBuy)
		if err != nil {
			exec.Actions = append(exec.Actions, failed(types.SideBuy, c.Symbol, qty, c.LastPrice, err))
			return fmt.Errorf("buy %s: %w", c.Symbol, err)
		}

		m.cash.debit(portfolio, cost)
		if err := m.positions.open(portfolio, c, qty, m.clock()); err != nil {
			// holds() was checked above; only reachable if the broker mutated the portfolio.
			return err
		}

		exec.Completed++
		exec.Actions = append(exec.Actions, types.ActionOutcome{
			Side: types.SideBuy, Symbol: c.Symbol, Quantity: qty, Price: c.LastPrice,
			Outcome: types.OutcomeExecuted, OrderID: resp.OrderID,
		})
		m.metrics.OrderPlaced(types.SideBuy)
	}
	return nil
}

// Reasons a buy is dropped before an order is placed.
const (
	skipBudget    = "budget_below_price"
	skipDuplicate = "already_held"
	skipCash      = "insufficient_cash"
)

func (m *Manager) skip(ctx context.Context, exec *types.Execution, c types.InstrumentSnapshot, qty float64, reason, detail string) {
	exec.Skipped++
	exec.Actions = append(exec.Actions, types.ActionOutcome{
		Side: types.SideBuy, Symbol: c.Symbol, Quantity: qty, Price: c.LastPrice,
		Outcome: types.OutcomeSkipped, Detail: detail,
	})
	m.metrics.ActionSkipped(types.SideBuy, reason)
	logger.Debug(ctx, "Buy skipped", "symbol", c.Symbol, "reason", reason, "detail", detail)
}

func failed(side, symbol string, qty, price float64, err error) types.ActionOutcome {
	return types.ActionOutcome{
		Side: side, Symbol: symbol, Quantity: qty, Price: price,
		Outcome: types.OutcomeFailed, Detail: err.Error(),
	}
}

// WeeklySummary renders every trade logged so far.
func (m *Manager) WeeklySummary() string {
	return report.Render(m.log.Entries())
}

func (m *Manager) TradeLog() []types.TradeLogEntry {
	return m.log.Entries()
}

func (m *Manager) State() types.StrategyState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// RequiredWeeklyTrade reports whether the weekly minimum trade target is at risk for p.
func (m *Manager) RequiredWeeklyTrade(now time.Time, p *types.Portfolio) bool {
	return m.strategy.RequiredWeeklyTrade(now, p)
}

type cycleKey struct{}

func withCycle(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleID returns the id of the cycle running in ctx, or "".
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}
