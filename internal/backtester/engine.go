package backtester

import (
	"github.com/atlas-desktop/krypto-paper/pkg/types"
)

// Run simulates a strategy's signal series against a close-price series the
// same way the Trading Engine's execute_paper_trade state machine would:
// a position transition of |delta| >= 0.1 closes and/or opens a leg at the
// current close, mark-to-market otherwise. This is the optimizer's
// objective function and the Strategy Generator's candidate evaluator.
func Run(closes []float64, signal []float64, initialCapital float64) types.BacktestResult {
	n := len(closes)
	if n == 0 || len(signal) != n {
		return types.BacktestResult{}
	}

	equity := initialCapital
	entryEquity := initialCapital
	entryPrice := 0.0
	position := 0.0

	equityCurve := make([]float64, 0, n)
	var periodReturns []float64
	var closedPnLs []float64
	totalTrades := 0
	prevEquity := equity

	for i := 0; i < n; i++ {
		price := closes[i]
		target := signal[i]
		delta := target - position

		switch {
		case position != 0 && price != 0 && entryPrice != 0:
			mtm := entryEquity * (1 + sign(position)*(price-entryPrice)/entryPrice)
			if absF(delta) < 0.1 {
				equity = mtm
			}
		}

		if absF(delta) >= 0.1 {
			if position != 0 {
				settled := entryEquity * (1 + sign(position)*(price-entryPrice)/entryPrice)
				pnl := settled - entryEquity
				closedPnLs = append(closedPnLs, pnl)
				equity = settled
				totalTrades++
			}
			if target != 0 {
				entryPrice = price
				entryEquity = equity
				totalTrades++
			} else {
				entryPrice = 0
				entryEquity = 0
			}
			position = target
		}

		if prevEquity != 0 {
			periodReturns = append(periodReturns, (equity-prevEquity)/prevEquity)
		}
		prevEquity = equity
		equityCurve = append(equityCurve, equity)
	}

	totalReturnPct := 0.0
	if initialCapital != 0 {
		totalReturnPct = (equity - initialCapital) / initialCapital * 100
	}

	return types.BacktestResult{
		SharpeRatio:    sharpeRatio(periodReturns, 525600), // 1m bars per year
		TotalReturnPct: totalReturnPct,
		MaxDrawdownPct: maxDrawdownPct(equityCurve),
		WinRate:        winRate(closedPnLs),
		ProfitFactor:   profitFactor(closedPnLs),
		TotalTrades:    totalTrades,
		KellyFraction:  kellyFraction(closedPnLs),
		EquityCurve:    equityCurve,
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
