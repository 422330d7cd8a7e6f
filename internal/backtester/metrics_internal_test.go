package backtester

import (
	"math"
	"testing"
)

func TestSharpeRatioZeroVolatilityIsZero(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01}
	if got := sharpeRatio(returns, 252); got != 0 {
		t.Fatalf("expected 0 Sharpe for zero-volatility returns, got %f", got)
	}
}

func TestSharpeRatioTooFewSamplesIsZero(t *testing.T) {
	if got := sharpeRatio([]float64{0.01}, 252); got != 0 {
		t.Fatalf("expected 0 Sharpe for fewer than 2 samples, got %f", got)
	}
}

func TestSharpeRatioPositiveMeanIsPositive(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.005, 0.015, 0.01}
	if got := sharpeRatio(returns, 252); got <= 0 {
		t.Fatalf("expected a positive Sharpe for mostly-positive returns, got %f", got)
	}
}

func TestMaxDrawdownPctTracksPeakToTrough(t *testing.T) {
	equity := []float64{100, 120, 90, 110}
	dd := maxDrawdownPct(equity)
	want := (120.0 - 90.0) / 120.0 * 100
	if math.Abs(dd-want) > 1e-9 {
		t.Fatalf("expected drawdown %f, got %f", want, dd)
	}
}

func TestMaxDrawdownPctMonotonicRiseIsZero(t *testing.T) {
	equity := []float64{100, 110, 120, 130}
	if got := maxDrawdownPct(equity); got != 0 {
		t.Fatalf("expected 0 drawdown for a monotonic rise, got %f", got)
	}
}

func TestWinRateFraction(t *testing.T) {
	pnls := []float64{10, -5, 20, -1}
	if got := winRate(pnls); got != 0.5 {
		t.Fatalf("expected a 50%% win rate, got %f", got)
	}
}

func TestWinRateEmptyIsZero(t *testing.T) {
	if got := winRate(nil); got != 0 {
		t.Fatalf("expected 0 win rate for no trades, got %f", got)
	}
}

func TestProfitFactorRatio(t *testing.T) {
	pnls := []float64{10, 10, -5}
	if got := profitFactor(pnls); got != 4 {
		t.Fatalf("expected profit factor 4 (20/5), got %f", got)
	}
}

func TestProfitFactorNoLossesIsInfinite(t *testing.T) {
	pnls := []float64{10, 10}
	if got := profitFactor(pnls); !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf profit factor with no losses, got %f", got)
	}
}

func TestProfitFactorNoTradesIsZero(t *testing.T) {
	if got := profitFactor(nil); got != 0 {
		t.Fatalf("expected 0 profit factor for no trades, got %f", got)
	}
}

func TestKellyFractionBoundedToUnitInterval(t *testing.T) {
	pnls := []float64{100, 100, 100, -10}
	k := kellyFraction(pnls)
	if k < 0 || k > 1 {
		t.Fatalf("expected Kelly fraction within [0, 1], got %f", k)
	}
}

func TestKellyFractionNoWinsOrNoLossesIsZero(t *testing.T) {
	if got := kellyFraction([]float64{10, 20, 30}); got != 0 {
		t.Fatalf("expected 0 Kelly fraction with no losing trades, got %f", got)
	}
	if got := kellyFraction([]float64{-10, -20}); got != 0 {
		t.Fatalf("expected 0 Kelly fraction with no winning trades, got %f", got)
	}
}
