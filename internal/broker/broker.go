// Package broker holds what every brokerage implementation shares: order validation and fee math.
package broker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"salgsmester/internal/types"
)

var ErrInvalidSide = errors.New("side must be BUY or SELL")

// NormalizeSide upper-cases side and rejects anything other than BUY or SELL.
func NormalizeSide(side string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(side))
	if s != types.SideBuy && s != types.SideSell {
		return "", fmt.Errorf("%w: got %q", ErrInvalidSide, side)
	}
	return s, nil
}

// Fees computes brokerage costs in decimal and rounds to whole øre.
type Fees struct {
	fixed decimal.Decimal
	rate  decimal.Decimal
}

func NewFees(f types.FeeStructure) Fees {
	return Fees{
		fixed: decimal.NewFromFloat(f.FixedFee),
		rate:  decimal.NewFromFloat(f.VariableRate),
	}
}

func gross(price, qty float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(qty))
}

func (f Fees) fee(gross decimal.Decimal) decimal.Decimal {
	return f.fixed.Add(gross.Mul(f.rate)).Round(2)
}

func (f Fees) EstimateTradeFee(price, qty float64) float64 {
	return f.fee(gross(price, qty)).InexactFloat64()
}

func (f Fees) EstimateTotalBuyCost(price, qty float64) float64 {
	g := gross(price, qty)
	return g.Add(f.fee(g)).Round(2).InexactFloat64()
}

// EstimateNetSellProceeds is gross minus fee, floored at zero.
func (f Fees) EstimateNetSellProceeds(price, qty float64) float64 {
	g := gross(price, qty)
	net := g.Sub(f.fee(g))
	if net.IsNegative() {
		return 0
	}
	return net.Round(2).InexactFloat64()
}
