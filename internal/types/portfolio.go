package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicatePosition is matched by DuplicatePositionError via errors.Is.
var ErrDuplicatePosition = errors.New("duplicate position")

// DuplicatePositionError is returned when a second position is added for a held symbol.
type DuplicatePositionError struct {
	Symbol string
}

func (e *DuplicatePositionError) Error() string {
	return fmt.Sprintf("position for %s already open", e.Symbol)
}

func (e *DuplicatePositionError) Is(target error) bool {
	return target == ErrDuplicatePosition
}

// Portfolio is the account state for one cycle: open positions keyed by symbol,
// a cash balance and the time of the last trade.
//
// Cash is expected to stay non-negative; the engine enforces that when it spends.
type Portfolio struct {
	Cash          float64
	LastTradeTime time.Time

	positions map[string]Position
	order     []string
}

// NewPortfolio returns an empty portfolio holding the given cash.
func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{
		Cash:      cash,
		positions: make(map[string]Position),
	}
}

// AddPosition opens a position and records its entry time as the last trade time.
func (p *Portfolio) AddPosition(pos Position) error {
	if p.positions == nil {
		p.positions = make(map[string]Position)
	}
	symbol := pos.Instrument.Symbol
	if _, exists := p.positions[symbol]; exists {
		return &DuplicatePositionError{Symbol: symbol}
	}
	p.positions[symbol] = pos
	p.order = append(p.order, symbol)
	p.LastTradeTime = pos.EntryTime
	return nil
}

// RemovePosition closes the position for symbol. The bool is false when nothing was held.
func (p *Portfolio) RemovePosition(symbol string, at time.Time) (Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return Position{}, false
	}
	delete(p.positions, symbol)
	for i, s := range p.order {
		if s == symbol {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.LastTradeTime = at
	return pos, true
}

// Position returns the open position for symbol.
func (p *Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns the open positions in insertion order.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.order))
	for _, s := range p.order {
		out = append(out, p.positions[s])
	}
	return out
}

// Len returns the number of open positions.
func (p *Portfolio) Len() int {
	return len(p.order)
}

// TotalValue returns cash plus the market value of every position.
func (p *Portfolio) TotalValue() float64 {
	total := p.Cash
	for _, s := range p.order {
		total += p.positions[s].MarketValue()
	}
	return total
}

// HasTraded reports whether a last trade time is known.
func (p *Portfolio) HasTraded() bool {
	return !p.LastTradeTime.IsZero()
}

// ExposureBySector sums market value per sector. Untagged instruments fall under UnknownSector.
func (p *Portfolio) ExposureBySector() map[string]float64 {
	exposure := make(map[string]float64)
	for _, s := range p.order {
		pos := p.positions[s]
		exposure[pos.Instrument.SectorOrUnknown()] += pos.MarketValue()
	}
	return exposure
}
