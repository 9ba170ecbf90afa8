package interfaces

import (
	"context"

	"salgsmester/internal/types"
)

// Broker is the brokerage collaborator: account data, market snapshots, orders and fee estimates.
type Broker interface {
	Authenticate(ctx context.Context) error
	FetchInstruments(ctx context.Context) ([]types.InstrumentSnapshot, error)
	FetchPortfolio(ctx context.Context) (*types.Portfolio, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)

	EstimateTradeFee(price, qty float64) float64
	EstimateTotalBuyCost(price, qty float64) float64
	// EstimateNetSellProceeds is gross minus fee, never below zero.
	EstimateNetSellProceeds(price, qty float64) float64
}
