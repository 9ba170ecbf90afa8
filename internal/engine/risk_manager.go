package engine

import (
	"math"

	"salgsmester/internal/types"
)

// cashGuard owns every change to portfolio cash and keeps it from going negative.
type cashGuard struct{}

func newCashGuard() *cashGuard {
	return &cashGuard{}
}

// affordableQuantity is the whole number of units budget buys at price, ignoring fees.
func (cg *cashGuard) affordableQuantity(budget, price float64) float64 {
	if price <= 0 || budget <= 0 {
		return 0
	}
	return math.Floor(budget / price)
}

// covers is checked against the cash left now, not the per-candidate budget,
// so an earlier skip leaves room for later candidates.
func (cg *cashGuard) covers(p *types.Portfolio, cost float64) bool {
	return cost <= p.Cash
}

func (cg *cashGuard) debit(p *types.Portfolio, amount float64) {
	p.Cash -= amount
}

func (cg *cashGuard) credit(p *types.Portfolio, amount float64) {
	p.Cash += amount
}
