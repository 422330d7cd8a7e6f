package features_test

import (
	"testing"

	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
	"github.com/atlas-desktop/krypto-paper/internal/features"
)

func TestSMAWarmupWindow(t *testing.T) {
	series := []float64{10, 10, 10, 10}
	out := features.SMA(series, 20)

	for i, v := range out {
		if v != 10 {
			t.Fatalf("expected SMA of a flat series to equal the series value at every index, index %d got %f", i, v)
		}
	}
}

func TestEMAFirstValueSeedsFromSeries(t *testing.T) {
	series := []float64{5, 5, 5}
	out := features.EMA(series, 12)
	if out[0] != 5 {
		t.Fatalf("expected EMA[0] to seed from series[0], got %f", out[0])
	}
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 100
	}
	out := features.RSI(series, 14)
	for i, v := range out {
		if v < 40 || v > 60 {
			t.Fatalf("expected RSI of a perfectly flat series to stay near neutral, index %d got %f", i, v)
		}
	}
}

func TestRSIMonotonicRiseIsOverbought(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = float64(i)
	}
	out := features.RSI(series, 14)
	last := out[len(out)-1]
	if last < 70 {
		t.Fatalf("expected RSI to read overbought after a steady rise, got %f", last)
	}
}

func TestBollingerBandsBracketPrice(t *testing.T) {
	series := []float64{100, 102, 98, 105, 95, 110, 90}
	upper, mid, lower := features.Bollinger(series, 5, 2.0)

	for i := range series {
		if upper[i] < mid[i] || mid[i] < lower[i] {
			t.Fatalf("expected upper >= mid >= lower at index %d, got upper=%f mid=%f lower=%f", i, upper[i], mid[i], lower[i])
		}
	}
}

func TestOBVTracksDirection(t *testing.T) {
	close := []float64{10, 11, 10, 10, 12}
	volume := []float64{0, 5, 5, 5, 5}

	obv := features.OBV(close, volume)
	if obv[1] != 5 {
		t.Fatalf("expected OBV to add volume on an up bar, got %f", obv[1])
	}
	if obv[2] != 0 {
		t.Fatalf("expected OBV to subtract volume on a down bar, got %f", obv[2])
	}
	if obv[3] != 0 {
		t.Fatalf("expected OBV to hold flat on an unchanged bar, got %f", obv[3])
	}
}

func TestAddTechnicalsAttachesEveryColumn(t *testing.T) {
	n := 60
	df := dataframe.New(n)
	for i := 0; i < n; i++ {
		df.Close[i] = 100 + float64(i%7)
		df.High[i] = df.Close[i] + 1
		df.Low[i] = df.Close[i] - 1
		df.Open[i] = df.Close[i]
		df.Volume[i] = 1000
	}

	features.NewEngine().AddTechnicals(df)

	for _, name := range []string{"ema12", "ema26", "ema50", "sma20", "rsi14", "bb_upper", "bb_mid", "bb_lower", "atr14", "macd", "macd_signal", "macd_hist", "obv"} {
		col := df.Feature(name)
		if len(col) != n {
			t.Fatalf("expected feature column %q to have length %d, got %d", name, n, len(col))
		}
	}
}
