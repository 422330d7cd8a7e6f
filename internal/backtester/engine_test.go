package backtester_test

import (
	"testing"

	"github.com/atlas-desktop/krypto-paper/internal/backtester"
)

func TestRunFlatSignalNeverTrades(t *testing.T) {
	closes := []float64{100, 101, 99, 102, 103}
	signal := make([]float64, len(closes))

	result := backtester.Run(closes, signal, 10000)

	if result.TotalTrades != 0 {
		t.Fatalf("expected 0 trades for an all-flat signal, got %d", result.TotalTrades)
	}
	if result.TotalReturnPct != 0 {
		t.Fatalf("expected 0%% return for an all-flat signal, got %f", result.TotalReturnPct)
	}
}

func TestRunLongWinningTrade(t *testing.T) {
	closes := []float64{100, 100, 120, 120}
	signal := []float64{1, 1, 1, 0}

	result := backtester.Run(closes, signal, 1000)

	if result.TotalReturnPct <= 0 {
		t.Fatalf("expected positive return on a long winning trade, got %f", result.TotalReturnPct)
	}
	if result.TotalTrades == 0 {
		t.Fatal("expected at least one recorded trade")
	}
}

func TestRunShortLosingTrade(t *testing.T) {
	closes := []float64{100, 100, 130, 130}
	signal := []float64{-1, -1, -1, 0}

	result := backtester.Run(closes, signal, 1000)

	if result.TotalReturnPct >= 0 {
		t.Fatalf("expected negative return on a short against a rally, got %f", result.TotalReturnPct)
	}
}

func TestRunEmptyInputsAreZeroValue(t *testing.T) {
	result := backtester.Run(nil, nil, 1000)
	if result.TotalTrades != 0 || result.SharpeRatio != 0 {
		t.Fatalf("expected zero-value result for empty input, got %+v", result)
	}

	mismatched := backtester.Run([]float64{1, 2, 3}, []float64{1, 0}, 1000)
	if mismatched.TotalTrades != 0 {
		t.Fatalf("expected zero-value result for mismatched-length input, got %+v", mismatched)
	}
}

func TestDownsampleKeepsLastValue(t *testing.T) {
	series := make([]float64, 237)
	for i := range series {
		series[i] = float64(i)
	}

	out := backtester.Downsample(series)
	if len(out) == 0 {
		t.Fatal("expected a non-empty downsampled series")
	}
	if out[len(out)-1] != series[len(series)-1] {
		t.Fatalf("expected downsample to retain the final value, got %f want %f", out[len(out)-1], series[len(series)-1])
	}
	if len(out) > 52 {
		t.Fatalf("expected at most ~51 points, got %d", len(out))
	}
}

func TestDownsampleShortSeriesUnchanged(t *testing.T) {
	series := []float64{1, 2, 3}
	out := backtester.Downsample(series)
	if len(out) != len(series) {
		t.Fatalf("expected a short series to pass through unchanged, got %v", out)
	}
}
