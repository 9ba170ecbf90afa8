package brokerobs

import (
	"context"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/trace"
	"salgsmester/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) Authenticate(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.Authenticate")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Authenticating with brokerage")

	if err := ob.broker.Authenticate(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Authentication failed", err)
		return err
	}

	logger.InfoSkip(ctx, 1, "Authenticated")
	return nil
}

// FetchInstruments fetches market snapshots with observability
func (ob *observableBroker) FetchInstruments(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "broker.FetchInstruments")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching instruments")

	insts, err := ob.broker.FetchInstruments(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch instruments", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Instruments fetched successfully", "count", len(insts))
	return insts, nil
}

// FetchPortfolio fetches account state with observability
func (ob *observableBroker) FetchPortfolio(ctx context.Context) (*types.Portfolio, error) {
	ctx, span := trace.StartSpan(ctx, "broker.FetchPortfolio")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching portfolio")

	p, err := ob.broker.FetchPortfolio(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch portfolio", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Portfolio fetched successfully",
		"positions", p.Len(),
		"cash", p.Cash,
		"total_value", p.TotalValue(),
	)
	return p, nil
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Quantity,
		"client_ref", req.ClientRef,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Quantity,
		)
		return resp, err
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

func (ob *observableBroker) EstimateTradeFee(price, qty float64) float64 {
	return ob.broker.EstimateTradeFee(price, qty)
}

func (ob *observableBroker) EstimateTotalBuyCost(price, qty float64) float64 {
	return ob.broker.EstimateTotalBuyCost(price, qty)
}

func (ob *observableBroker) EstimateNetSellProceeds(price, qty float64) float64 {
	return ob.broker.EstimateNetSellProceeds(price, qty)
}
