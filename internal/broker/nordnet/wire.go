package nordnet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salgsmester/internal/types"
)

// defaultVolatility is assumed when the API does not report one.
const defaultVolatility = 0.2

var hundred = decimal.NewFromInt(100)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type twoFactorRequest struct {
	Token string `json:"token"`
}

// instrumentDTO is shared by the instrument list and the instrument part of a position.
// Percent fields arrive as percentages, not fractions.
type instrumentDTO struct {
	Symbol            string              `json:"symbol"`
	Name              string              `json:"name"`
	LastPrice         decimal.Decimal     `json:"lastPrice"`
	ChangePercent     decimal.Decimal     `json:"changePercent"`
	WeekChangePercent decimal.Decimal     `json:"weekChangePercent"`
	Volatility        decimal.NullDecimal `json:"volatility"`
	Sector            string              `json:"sector"`
}

func (d instrumentDTO) snapshot(observed time.Time) types.InstrumentSnapshot {
	name := d.Name
	if name == "" {
		name = d.Symbol
	}
	vol := defaultVolatility
	if d.Volatility.Valid {
		vol = d.Volatility.Decimal.InexactFloat64()
	}
	return types.InstrumentSnapshot{
		Symbol:          d.Symbol,
		Name:            name,
		LastPrice:       d.LastPrice.InexactFloat64(),
		DailyChangePct:  d.ChangePercent.Div(hundred).InexactFloat64(),
		WeeklyChangePct: d.WeekChangePercent.Div(hundred).InexactFloat64(),
		Volatility:      vol,
		Sector:          d.Sector,
		Timestamp:       observed,
	}
}

type positionDTO struct {
	instrumentDTO
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	PurchaseDate string          `json:"purchaseDate"`
}

type portfolioDTO struct {
	Cash      decimal.Decimal `json:"cash"`
	Positions []positionDTO   `json:"positions"`
}

func (d portfolioDTO) portfolio(now time.Time) (*types.Portfolio, error) {
	p := types.NewPortfolio(d.Cash.InexactFloat64())
	for _, pos := range d.Positions {
		entry, err := parsePurchaseDate(pos.PurchaseDate, now)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", pos.Symbol, err)
		}
		if err := p.AddPosition(types.Position{
			Instrument: pos.snapshot(now),
			Quantity:   pos.Quantity.InexactFloat64(),
			EntryPrice: pos.AveragePrice.InexactFloat64(),
			EntryTime:  entry,
		}); err != nil {
			return nil, fmt.Errorf("portfolio snapshot: %w", err)
		}
	}
	// Fetching is not trading: the trade clock starts empty for every snapshot.
	p.LastTradeTime = time.Time{}
	return p, nil
}

// parsePurchaseDate accepts RFC 3339, a timestamp without zone, or a bare date. Empty means now.
func parsePurchaseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable purchaseDate %q", s)
}

type orderRequest struct {
	Symbol    string   `json:"symbol"`
	Quantity  float64  `json:"quantity"`
	OrderType string   `json:"orderType"`
	Side      string   `json:"side"`
	Price     *float64 `json:"price,omitempty"`
	ClientRef string   `json:"clientRef,omitempty"`
}

func newOrderRequest(req types.OrderReq, side string) orderRequest {
	out := orderRequest{
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		OrderType: strings.ToLower(req.OrderType),
		Side:      strings.ToLower(side),
		ClientRef: req.ClientRef,
	}
	if req.Price != nil {
		// Limit prices are quoted in whole øre.
		price := decimal.NewFromFloat(*req.Price).Round(2).InexactFloat64()
		out.Price = &price
	}
	return out
}

type orderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
