package strategy_test

import (
	"testing"

	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
	"github.com/atlas-desktop/krypto-paper/internal/strategy"
)

func TestDynamicTrendCrossoverSign(t *testing.T) {
	df := dataframe.New(3)
	df.SetFeature("ema12", []float64{10, 10, 10})
	df.SetFeature("ema26", []float64{9, 10, 11})

	s := strategy.NewDynamicTrend()
	sig := s.Predict(df)

	if sig[0] != 1 {
		t.Fatalf("expected a long signal when fast EMA leads slow EMA, got %f", sig[0])
	}
	if sig[2] != -1 {
		t.Fatalf("expected a short signal when fast EMA trails slow EMA, got %f", sig[2])
	}

	explain := s.Explain(df)
	if explain[0] == "" || explain[2] == "" {
		t.Fatal("expected non-empty explanations for every signalled row")
	}
}

func TestRsiMeanReversionThresholds(t *testing.T) {
	df := dataframe.New(3)
	df.SetFeature("rsi14", []float64{20, 50, 85})

	s := strategy.NewRsiMeanReversion()
	sig := s.Predict(df)

	if sig[0] != 1 {
		t.Fatalf("expected a long signal below the oversold level, got %f", sig[0])
	}
	if sig[1] != 0 {
		t.Fatalf("expected no signal in the neutral zone, got %f", sig[1])
	}
	if sig[2] != -1 {
		t.Fatalf("expected a short signal above the overbought level, got %f", sig[2])
	}
}

func TestBollingerReversionFadesBandPierce(t *testing.T) {
	df := dataframe.New(2)
	df.Close = []float64{95, 110}
	df.SetFeature("bb_upper", []float64{105, 105})
	df.SetFeature("bb_lower", []float64{100, 100})

	s := strategy.NewBollingerReversion()
	sig := s.Predict(df)

	if sig[0] != 1 {
		t.Fatalf("expected a long fade below the lower band, got %f", sig[0])
	}
	if sig[1] != -1 {
		t.Fatalf("expected a short fade above the upper band, got %f", sig[1])
	}
}

func TestSMAFloatWindowAverage(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	out := strategy.SMAFloat(series, 2)

	if out[0] != 1 {
		t.Fatalf("expected the first value's SMA to equal itself, got %f", out[0])
	}
	if out[1] != 1.5 {
		t.Fatalf("expected SMA(2) at index 1 to be 1.5, got %f", out[1])
	}
	if out[4] != 4.5 {
		t.Fatalf("expected SMA(2) at index 4 to be 4.5, got %f", out[4])
	}
}

func TestSetParamUpdatesOnlyKnownNames(t *testing.T) {
	s := strategy.NewAtrBreakout()
	s.SetParam("atrMultiple", 2.5)
	if s.Params()["atrMultiple"] != 2.5 {
		t.Fatalf("expected atrMultiple to update to 2.5, got %v", s.Params()["atrMultiple"])
	}

	s.SetParam("unknownParam", 99)
	if s.Params()["atrMultiple"] != 2.5 {
		t.Fatal("expected an unknown parameter name to be a no-op")
	}
}
