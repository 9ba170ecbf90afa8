package engine

import (
	"time"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/metrics"
	"salgsmester/internal/tradelog"
	"salgsmester/internal/types"
)

// Options are the engine settings that come from configuration.
type Options struct {
	Fees types.FeeStructure
	// SellNetOfFees credits sale proceeds after the fee instead of the gross amount.
	SellNetOfFees bool
}

type Option func(*Manager)

// WithClock sets the time source for entry and trade log timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithTradeLog replaces the default in-memory trade log.
func WithTradeLog(l *tradelog.Log) Option {
	return func(m *Manager) {
		m.log = l
	}
}

func New(cfg Options, brk interfaces.Broker, strat interfaces.Strategy, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		broker:   brk,
		strategy: strat,
		clock:    time.Now,
		log:      tradelog.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.positions = newPositionManager()
	m.cash = newCashGuard()
	m.orders = newOrderExecutor(brk, m.log, m.clock)
	return m
}
