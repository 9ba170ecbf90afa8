package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"salgsmester/internal/types"
)

type aggRow struct {
	Symbol      string
	BuyQty      float64
	BuyValue    float64
	SellQty     float64
	SellValue   float64
	RealizedPnL float64
}

// WriteSummaryCSV aggregates entries per symbol and writes <dir>/<name> (DefaultCSV when empty).
// Realised P&L is estimated over the matched quantity at average prices. Returns "" when there is nothing to summarise.
func (r *Reporter) WriteSummaryCSV(entries []types.TradeLogEntry, name string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if name == "" {
		name = DefaultCSV
	}

	aggs := map[string]*aggRow{}
	for _, e := range entries {
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		switch e.Action {
		case types.SideBuy:
			row.BuyQty += e.Quantity
			row.BuyValue += e.Quantity * e.Price
		case types.SideSell:
			row.SellQty += e.Quantity
			row.SellValue += e.Quantity * e.Price
		}
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := filepath.Join(r.dir, name)
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"symbol", "buy_qty", "buy_avg", "sell_qty", "sell_avg", "realized_pnl", "gross_buy_value", "gross_sell_value"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	var totalBuy, totalSell, totalPnL float64
	for _, k := range keys {
		row := aggs[k]
		var buyAvg, sellAvg float64
		if row.BuyQty > 0 {
			buyAvg = row.BuyValue / row.BuyQty
		}
		if row.SellQty > 0 {
			sellAvg = row.SellValue / row.SellQty
		}
		// Unmatched legs carry no P&L; multiplying zero by a loss would print "-0.00".
		if matched := min(row.BuyQty, row.SellQty); matched > 0 {
			row.RealizedPnL = matched * (sellAvg - buyAvg)
		}
		rec := []string{
			row.Symbol,
			strconv.FormatFloat(row.BuyQty, 'f', -1, 64),
			fmt.Sprintf("%.4f", buyAvg),
			strconv.FormatFloat(row.SellQty, 'f', -1, 64),
			fmt.Sprintf("%.4f", sellAvg),
			fmt.Sprintf("%.2f", row.RealizedPnL),
			fmt.Sprintf("%.2f", row.BuyValue),
			fmt.Sprintf("%.2f", row.SellValue),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalBuy += row.BuyValue
		totalSell += row.SellValue
		totalPnL += row.RealizedPnL
	}
	if err := w.Write([]string{"TOTAL", "", "", "", "", fmt.Sprintf("%.2f", totalPnL), fmt.Sprintf("%.2f", totalBuy), fmt.Sprintf("%.2f", totalSell)}); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}
