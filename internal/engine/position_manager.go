package engine

import (
	"time"

	"salgsmester/internal/types"
)

// positionManager applies executed trades to the portfolio's positions.
type positionManager struct{}

func newPositionManager() *positionManager {
	return &positionManager{}
}

func (pm *positionManager) holds(p *types.Portfolio, symbol string) bool {
	_, ok := p.Position(symbol)
	return ok
}

// open books a bought position at the instrument's last price.
func (pm *positionManager) open(p *types.Portfolio, inst types.InstrumentSnapshot, qty float64, at time.Time) error {
	return p.AddPosition(types.Position{
		Instrument: inst,
		Quantity:   qty,
		EntryPrice: inst.LastPrice,
		EntryTime:  at,
	})
}

// close removes a sold position and returns it.
func (pm *positionManager) close(p *types.Portfolio, symbol string, at time.Time) (types.Position, bool) {
	return p.RemovePosition(symbol, at)
}
