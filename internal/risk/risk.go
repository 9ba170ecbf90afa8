// Package risk scores portfolios and instruments. Everything here is a pure function of its inputs.
package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"salgsmester/internal/types"
)

const (
	// DefaultNotional is the trade size assumed when scoring the fee drag of a single instrument.
	DefaultNotional = 10000.0
	// DefaultMaxPerSector caps how many candidates one sector may contribute.
	DefaultMaxPerSector = 2
)

// EstimatePortfolioRisk weights each position by its value net of the fee to exit it.
// Returns zero metrics when nothing is held or the net value is not positive.
func EstimatePortfolioRisk(p *types.Portfolio, fees types.FeeStructure) types.RiskMetrics {
	if p == nil || p.Len() == 0 {
		return types.RiskMetrics{}
	}

	positions := p.Positions()
	net := make([]float64, len(positions))
	vols := make([]float64, len(positions))
	downside := make([]float64, len(positions))

	for i, pos := range positions {
		gross := pos.MarketValue()
		fee := fees.Fee(gross)
		net[i] = math.Max(gross-fee, 0)
		vols[i] = pos.Instrument.Volatility

		feeDrag := 0.0
		if gross > 0 {
			feeDrag = fee / gross
		}
		downside[i] = math.Max(-pos.Instrument.DailyChangePct, 0) + feeDrag
	}

	total := floats.Sum(net) + p.Cash
	if total <= 0 {
		return types.RiskMetrics{}
	}

	weights := make([]float64, len(net))
	copy(weights, net)
	floats.Scale(1/total, weights)

	return types.RiskMetrics{
		Volatility:            floats.Dot(weights, vols),
		DownsideRisk:          stat.Mean(downside, nil),
		ExposureConcentration: floats.Max(weights),
	}
}

// ScoreInstrumentRisk adds volatility, the size of any daily drop and the fee drag of
// trading notional (or at least one unit) of the instrument. Lower is safer.
func ScoreInstrumentRisk(inst types.InstrumentSnapshot, fees types.FeeStructure, notional float64) float64 {
	gross := math.Max(notional, inst.LastPrice)
	feeDrag := 0.0
	if gross > 0 {
		feeDrag = fees.Fee(gross) / gross
	}
	return inst.Volatility + math.Max(-inst.DailyChangePct, 0) + feeDrag
}

// ScoreInstrumentRiskDefault scores with DefaultNotional.
func ScoreInstrumentRiskDefault(inst types.InstrumentSnapshot, fees types.FeeStructure) float64 {
	return ScoreInstrumentRisk(inst, fees, DefaultNotional)
}

// DiversifyCandidates orders candidates by expected growth, best first, and keeps at most
// maxPerSector per sector. Ties keep their input order. The input slice is not modified.
func DiversifyCandidates(candidates []types.InstrumentSnapshot, maxPerSector int) []types.InstrumentSnapshot {
	sorted := make([]types.InstrumentSnapshot, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExpectedShortTermGrowth() > sorted[j].ExpectedShortTermGrowth()
	})

	counts := make(map[string]int)
	selected := make([]types.InstrumentSnapshot, 0, len(sorted))
	for _, inst := range sorted {
		sector := inst.SectorOrUnknown()
		if counts[sector] >= maxPerSector {
			continue
		}
		counts[sector]++
		selected = append(selected, inst)
	}
	return selected
}
