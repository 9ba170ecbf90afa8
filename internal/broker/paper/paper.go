// Package paper is an offline brokerage backed by a YAML snapshot. Orders fill immediately
// at the last price and update the in-memory book, so consecutive cycles see their own trades.
package paper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"salgsmester/internal/broker"
	"salgsmester/internal/interfaces"
	"salgsmester/internal/types"
)

// Snapshot is the fixture file layout.
type Snapshot struct {
	Cash        float64                    `yaml:"cash"`
	Instruments []types.InstrumentSnapshot `yaml:"instruments"`
	Positions   []Holding                  `yaml:"positions"`
}

// Holding references an instrument by symbol.
type Holding struct {
	Symbol     string    `yaml:"symbol"`
	Quantity   float64   `yaml:"quantity"`
	EntryPrice float64   `yaml:"entry_price"`
	EntryTime  time.Time `yaml:"entry_time"`
}

type holding struct {
	qty        float64
	entryPrice float64
	entryTime  time.Time
}

type Broker struct {
	broker.Fees

	mu          sync.Mutex
	cash        float64
	instruments []types.InstrumentSnapshot
	bySymbol    map[string]types.InstrumentSnapshot
	book        map[string]*holding
	order       []string
	now         func() time.Time
}

var _ interfaces.Broker = (*Broker)(nil)

// Load reads a snapshot fixture from path.
func Load(path string, fees types.FeeStructure) (*Broker, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return New(snap, fees)
}

func New(snap Snapshot, fees types.FeeStructure) (*Broker, error) {
	pb := &Broker{
		Fees:        broker.NewFees(fees),
		cash:        snap.Cash,
		instruments: snap.Instruments,
		bySymbol:    make(map[string]types.InstrumentSnapshot, len(snap.Instruments)),
		book:        make(map[string]*holding),
		now:         time.Now,
	}
	for _, inst := range snap.Instruments {
		pb.bySymbol[inst.Symbol] = inst
	}
	for _, h := range snap.Positions {
		if _, ok := pb.bySymbol[h.Symbol]; !ok {
			return nil, fmt.Errorf("position %s has no instrument in snapshot", h.Symbol)
		}
		if _, dup := pb.book[h.Symbol]; dup {
			return nil, &types.DuplicatePositionError{Symbol: h.Symbol}
		}
		pb.book[h.Symbol] = &holding{qty: h.Quantity, entryPrice: h.EntryPrice, entryTime: h.EntryTime}
		pb.order = append(pb.order, h.Symbol)
	}
	return pb, nil
}

func (b *Broker) Authenticate(context.Context) error { return nil }

func (b *Broker) FetchInstruments(context.Context) ([]types.InstrumentSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.InstrumentSnapshot, len(b.instruments))
	copy(out, b.instruments)
	return out, nil
}

func (b *Broker) FetchPortfolio(context.Context) (*types.Portfolio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := types.NewPortfolio(b.cash)
	for _, symbol := range b.order {
		h := b.book[symbol]
		if err := p.AddPosition(types.Position{
			Instrument: b.bySymbol[symbol],
			Quantity:   h.qty,
			EntryPrice: h.entryPrice,
			EntryTime:  h.entryTime,
		}); err != nil {
			return nil, err
		}
	}
	p.LastTradeTime = time.Time{}
	return p, nil
}

// PlaceOrder fills at the instrument's last price. Buys pay the fee on top; sells receive
// proceeds net of the fee.
func (b *Broker) PlaceOrder(_ context.Context, req types.OrderReq) (types.OrderResp, error) {
	side, err := broker.NormalizeSide(req.Side)
	if err != nil {
		return types.OrderResp{}, err
	}
	if req.Quantity <= 0 {
		return types.OrderResp{}, fmt.Errorf("quantity must be positive, got %v", req.Quantity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	inst, ok := b.bySymbol[req.Symbol]
	if !ok {
		return types.OrderResp{}, fmt.Errorf("unknown instrument %s", req.Symbol)
	}

	switch side {
	case types.SideBuy:
		cost := b.EstimateTotalBuyCost(inst.LastPrice, req.Quantity)
		if cost > b.cash {
			return types.OrderResp{}, fmt.Errorf("insufficient cash for %s: need %.2f, have %.2f", req.Symbol, cost, b.cash)
		}
		b.cash -= cost
		if h, held := b.book[req.Symbol]; held {
			total := h.entryPrice*h.qty + inst.LastPrice*req.Quantity
			h.qty += req.Quantity
			h.entryPrice = total / h.qty
		} else {
			b.book[req.Symbol] = &holding{qty: req.Quantity, entryPrice: inst.LastPrice, entryTime: b.now()}
			b.order = append(b.order, req.Symbol)
		}
	case types.SideSell:
		h, held := b.book[req.Symbol]
		if !held || h.qty < req.Quantity {
			return types.OrderResp{}, fmt.Errorf("cannot sell %v %s: not held", req.Quantity, req.Symbol)
		}
		b.cash += b.EstimateNetSellProceeds(inst.LastPrice, req.Quantity)
		h.qty -= req.Quantity
		if h.qty == 0 {
			b.remove(req.Symbol)
		}
	}

	return types.OrderResp{
		OrderID: "PAPER-" + uuid.NewString(),
		Status:  "FILLED",
		Message: fmt.Sprintf("%s %v %s @ %.2f", side, req.Quantity, req.Symbol, inst.LastPrice),
	}, nil
}

func (b *Broker) remove(symbol string) {
	delete(b.book, symbol)
	for i, s := range b.order {
		if s == symbol {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}

// Cash returns the simulated account balance.
func (b *Broker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}
