// Package features adds technical indicator columns to a raw OHLCV
// dataframe. The incremental EMA/SMA calculators in pkg/utils stream one
// decimal value at a time; here the same exponential/simple smoothing idea
// is applied as a full-column float64 pass, which is how the teacher's own
// backtester and optimizer work internally (decimal only at persistence
// boundaries).
package features

import (
	"math"

	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
)

// Engine computes and attaches technical feature columns to a DataFrame.
type Engine struct{}

// NewEngine constructs a feature engine. Stateless: all indicators are pure
// functions of the input columns.
func NewEngine() *Engine { return &Engine{} }

// AddTechnicals attaches the fixed indicator set the strategy catalogue
// depends on: EMA(12,26,50), SMA(20), RSI(14), Bollinger(20,2), ATR(14),
// MACD(12,26,9), OBV.
func (e *Engine) AddTechnicals(df *dataframe.DataFrame) *dataframe.DataFrame {
	df.SetFeature("ema12", EMA(df.Close, 12))
	df.SetFeature("ema26", EMA(df.Close, 26))
	df.SetFeature("ema50", EMA(df.Close, 50))
	df.SetFeature("sma20", SMA(df.Close, 20))
	df.SetFeature("rsi14", RSI(df.Close, 14))

	upper, mid, lower := Bollinger(df.Close, 20, 2.0)
	df.SetFeature("bb_upper", upper)
	df.SetFeature("bb_mid", mid)
	df.SetFeature("bb_lower", lower)

	df.SetFeature("atr14", ATR(df.High, df.Low, df.Close, 14))

	macd, signal, hist := MACD(df.Close, 12, 26, 9)
	df.SetFeature("macd", macd)
	df.SetFeature("macd_signal", signal)
	df.SetFeature("macd_hist", hist)

	df.SetFeature("obv", OBV(df.Close, df.Volume))
	return df
}

// SMA returns the simple moving average of series over period. Each of the
// first period-1 values is the mean of the rows seen so far (avoids NaN
// propagation into the strategies, matching the teacher's zero-value
// defensive style for warm-up windows).
func SMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 || len(series) == 0 {
		return out
	}
	var sum float64
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		window := i + 1
		if window > period {
			window = period
		}
		out[i] = sum / float64(window)
	}
	return out
}

// EMA returns the exponential moving average of series over period.
func EMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 || len(series) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI returns the relative strength index over period using Wilder smoothing.
func RSI(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 || len(series) < 2 {
		for i := range out {
			out[i] = 50
		}
		return out
	}
	var avgGain, avgLoss float64
	out[0] = 50
	for i := 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i <= period {
			avgGain = (avgGain*float64(i-1) + gain) / float64(i)
			avgLoss = (avgLoss*float64(i-1) + loss) / float64(i)
		} else {
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}
		if avgLoss == 0 {
			if avgGain == 0 {
				out[i] = 50
			} else {
				out[i] = 100
			}
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// Bollinger returns the upper, middle (SMA), and lower bands over period at
// numStdDev standard deviations.
func Bollinger(series []float64, period int, numStdDev float64) (upper, mid, lower []float64) {
	n := len(series)
	mid = SMA(series, period)
	upper = make([]float64, n)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		window := series[start : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(len(window))
		var variance float64
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		stddev := 0.0
		if len(window) > 0 {
			stddev = math.Sqrt(variance / float64(len(window)))
		}
		upper[i] = mid[i] + numStdDev*stddev
		lower[i] = mid[i] - numStdDev*stddev
	}
	return
}

// ATR returns the average true range over period (Wilder smoothing).
func ATR(high, low, close []float64, period int) []float64 {
	n := len(close)
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			tr[i] = high[i] - low[i]
			continue
		}
		hl := high[i] - low[i]
		hc := abs(high[i] - close[i-1])
		lc := abs(low[i] - close[i-1])
		tr[i] = max3(hl, hc, lc)
	}
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = tr[0]
	for i := 1; i < n; i++ {
		if i < period {
			out[i] = (out[i-1]*float64(i) + tr[i]) / float64(i+1)
		} else {
			out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
		}
	}
	return out
}

// MACD returns the MACD line, its signal line, and the histogram.
func MACD(series []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	fastEMA := EMA(series, fast)
	slowEMA := EMA(series, slow)
	macd = make([]float64, len(series))
	for i := range series {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signal = EMA(macd, signalPeriod)
	hist = make([]float64, len(series))
	for i := range series {
		hist[i] = macd[i] - signal[i]
	}
	return
}

// OBV returns the on-balance volume series.
func OBV(close, volume []float64) []float64 {
	out := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

