package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/tradelog"
	"salgsmester/internal/types"
)

// orderExecutor places market orders and appends executed trades to the trade log.
type orderExecutor struct {
	broker interfaces.Broker
	log    *tradelog.Log
	clock  func() time.Time
}

func newOrderExecutor(broker interfaces.Broker, log *tradelog.Log, clock func() time.Time) *orderExecutor {
	return &orderExecutor{
		broker: broker,
		log:    log,
		clock:  clock,
	}
}

func (oe *orderExecutor) buy(ctx context.Context, symbol string, qty, price float64, note string) (types.OrderResp, error) {
	return oe.place(ctx, types.SideBuy, symbol, qty, price, note)
}

func (oe *orderExecutor) sell(ctx context.Context, symbol string, qty, price float64, note string) (types.OrderResp, error) {
	return oe.place(ctx, types.SideSell, symbol, qty, price, note)
}

func (oe *orderExecutor) place(ctx context.Context, side, symbol string, qty, price float64, note string) (types.OrderResp, error) {
	req := types.OrderReq{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		OrderType: types.OrderTypeMarket,
		ClientRef: uuid.NewString(),
	}

	resp, err := oe.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"symbol", symbol,
			"side", side,
			"qty", qty,
			"price", price,
			"client_ref", req.ClientRef,
		)
		return types.OrderResp{}, err
	}

	logger.Trade(ctx, symbol, side, qty, price, resp.OrderID, "status", resp.Status, "cycle_id", CycleID(ctx))

	if err := oe.log.Append(types.TradeLogEntry{
		Timestamp: oe.clock(),
		Action:    side,
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		Note:      note,
	}); err != nil {
		// Placed orders stay booked when the journal write fails.
		logger.Warn(ctx, "Trade journal write failed", "symbol", symbol, "error", err)
	}

	return resp, nil
}
