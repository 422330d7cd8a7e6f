// Package backtester runs a single-asset simulation of a strategy's signal
// series against historical candles and computes the performance metrics
// the optimizer and Strategy Generator rank candidates by. Trimmed from the
// teacher's multi-asset event-driven engine (internal/backtester/engine.go)
// down to the single-symbol case this platform's optimizer objective
// function needs; the metric formulas themselves are the teacher's
// pkg/utils Calculate* helpers applied to the simulated equity curve.
package backtester

import "math"

// sharpeRatio computes an annualized Sharpe ratio from a series of
// per-period returns, assuming periodsPerYear periods map to one year.
// Mirrors pkg/utils.CalculateSharpeRatio's formula in float64.
func sharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := meanOf(returns)
	std := stdDevOf(returns, mean)
	if std == 0 {
		return 0
	}
	return (mean / std) * math.Sqrt(periodsPerYear)
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stdDevOf(v []float64, mean float64) float64 {
	if len(v) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range v {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(v)-1))
}

// maxDrawdownPct returns the largest peak-to-trough decline over the
// equity curve, expressed as a percentage.
func maxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak == 0 {
			continue
		}
		dd := (peak - e) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

// winRate returns the fraction of closing-trade PnLs that are positive; a
// zero PnL counts as a trade but not as a win.
func winRate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	wins := 0
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(pnls))
}

// profitFactor returns gross profit divided by gross loss (absolute value).
func profitFactor(pnls []float64) float64 {
	var grossProfit, grossLoss float64
	for _, p := range pnls {
		if p > 0 {
			grossProfit += p
		} else {
			grossLoss += -p
		}
	}
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}

// kellyFraction returns the Kelly criterion sizing fraction implied by the
// trade PnL distribution: winRate - (1-winRate)/payoffRatio.
func kellyFraction(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	var wins, losses []float64
	for _, p := range pnls {
		if p > 0 {
			wins = append(wins, p)
		} else if p < 0 {
			losses = append(losses, -p)
		}
	}
	if len(wins) == 0 || len(losses) == 0 {
		return 0
	}
	avgWin := meanOf(wins)
	avgLoss := meanOf(losses)
	if avgLoss == 0 {
		return 0
	}
	wr := float64(len(wins)) / float64(len(pnls))
	payoff := avgWin / avgLoss
	k := wr - (1-wr)/payoff
	if k < 0 {
		return 0
	}
	if k > 1 {
		return 1
	}
	return k
}

// Downsample reduces a series to at most 51 points: step = max(1,
// ceil(len/50)), always including the final value. Used both internally and
// by the Strategy Generator when persisting an equity curve.
func Downsample(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	step := (len(series) + 49) / 50
	if step < 1 {
		step = 1
	}
	out := make([]float64, 0, len(series)/step+1)
	for i := 0; i < len(series); i += step {
		out = append(out, series[i])
	}
	last := series[len(series)-1]
	if out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}
