package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedShortTermGrowth(t *testing.T) {
	inst := InstrumentSnapshot{Symbol: "EQNR", DailyChangePct: 0.02, WeeklyChangePct: 0.01, Volatility: 0.5}
	assert.InDelta(t, 0.007, inst.ExpectedShortTermGrowth(), 1e-12)
}

func TestExpectedShortTermGrowthFloorsRiskAdjustment(t *testing.T) {
	inst := InstrumentSnapshot{DailyChangePct: 0.1, WeeklyChangePct: 0.1, Volatility: 1.7}
	assert.InDelta(t, 0.1*0.1, inst.ExpectedShortTermGrowth(), 1e-12)
}

func TestUnrealisedReturnZeroEntryPrice(t *testing.T) {
	pos := Position{Instrument: InstrumentSnapshot{LastPrice: 120}, Quantity: 3, EntryPrice: 0}
	assert.Equal(t, 0.0, pos.UnrealisedReturnPct())
	assert.Equal(t, 360.0, pos.MarketValue())
}

func TestUnrealisedReturn(t *testing.T) {
	pos := Position{Instrument: InstrumentSnapshot{LastPrice: 105}, Quantity: 1, EntryPrice: 100}
	assert.InDelta(t, 0.05, pos.UnrealisedReturnPct(), 1e-12)
}

func TestPortfolioRejectsDuplicateSymbol(t *testing.T) {
	p := NewPortfolio(100)
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	require.NoError(t, p.AddPosition(Position{Instrument: InstrumentSnapshot{Symbol: "NHY", LastPrice: 60}, Quantity: 10, EntryTime: now}))
	err := p.AddPosition(Position{Instrument: InstrumentSnapshot{Symbol: "NHY", LastPrice: 60}, Quantity: 5, EntryTime: now})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePosition))
	var dup *DuplicatePositionError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "NHY", dup.Symbol)
	assert.Equal(t, 1, p.Len())
}

func TestPortfolioRemoveKeepsOrderAndTradeTime(t *testing.T) {
	p := NewPortfolio(0)
	t0 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{"A", "B", "C"} {
		require.NoError(t, p.AddPosition(Position{Instrument: InstrumentSnapshot{Symbol: s, LastPrice: 1}, Quantity: 1, EntryTime: t0}))
	}

	t1 := t0.Add(time.Hour)
	removed, ok := p.RemovePosition("B", t1)
	require.True(t, ok)
	assert.Equal(t, "B", removed.Instrument.Symbol)
	assert.Equal(t, t1, p.LastTradeTime)

	var symbols []string
	for _, pos := range p.Positions() {
		symbols = append(symbols, pos.Instrument.Symbol)
	}
	assert.Equal(t, []string{"A", "C"}, symbols)

	_, ok = p.RemovePosition("B", t1)
	assert.False(t, ok)
}

func TestPortfolioTotalsAndExposure(t *testing.T) {
	p := NewPortfolio(500)
	assert.False(t, p.HasTraded())
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.AddPosition(Position{Instrument: InstrumentSnapshot{Symbol: "EQNR", LastPrice: 300, Sector: "energy"}, Quantity: 2, EntryTime: now}))
	require.NoError(t, p.AddPosition(Position{Instrument: InstrumentSnapshot{Symbol: "XYZ", LastPrice: 50}, Quantity: 4, EntryTime: now}))

	assert.True(t, p.HasTraded())
	assert.Equal(t, 500.0+600.0+200.0, p.TotalValue())
	assert.Equal(t, map[string]float64{"energy": 600, UnknownSector: 200}, p.ExposureBySector())
}

func TestExecutionPartial(t *testing.T) {
	assert.False(t, Execution{Attempted: 2, Completed: 2}.Partial())
	assert.True(t, Execution{Attempted: 3, Completed: 2}.Partial())
}
