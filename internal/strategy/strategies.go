package strategy

import "github.com/atlas-desktop/krypto-paper/internal/dataframe"

// DynamicTrend trades the crossover of a fast and slow EMA, confirmed by a
// minimum separation to filter chop. Grounded on the teacher's
// TrendFollowingStrategy crossover logic, generalized from per-bar streaming
// to a full-column predict pass.
type DynamicTrend struct {
	FastPeriod  float64 `json:"fastPeriod"`
	SlowPeriod  float64 `json:"slowPeriod"`
	MinSpreadPc float64 `json:"minSpreadPct"`
}

func NewDynamicTrend() *DynamicTrend {
	return &DynamicTrend{FastPeriod: 12, SlowPeriod: 26, MinSpreadPc: 0.001}
}

func (s *DynamicTrend) Name() string { return "DynamicTrend" }

func (s *DynamicTrend) Predict(df *dataframe.DataFrame) []float64 {
	fast := df.Feature("ema12")
	slow := df.Feature("ema26")
	out := make([]float64, df.Len())
	for i := range out {
		if slow[i] == 0 {
			continue
		}
		spread := (fast[i] - slow[i]) / slow[i]
		switch {
		case spread > s.MinSpreadPc:
			out[i] = 1
		case spread < -s.MinSpreadPc:
			out[i] = -1
		}
	}
	return out
}

func (s *DynamicTrend) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "fast EMA above slow EMA", "fast EMA below slow EMA")
}

func (s *DynamicTrend) Params() map[string]float64 {
	return map[string]float64{"fastPeriod": s.FastPeriod, "slowPeriod": s.SlowPeriod, "minSpreadPct": s.MinSpreadPc}
}

func (s *DynamicTrend) SetParam(name string, value float64) {
	switch name {
	case "fastPeriod":
		s.FastPeriod = value
	case "slowPeriod":
		s.SlowPeriod = value
	case "minSpreadPct":
		s.MinSpreadPc = value
	}
}

// RsiMeanReversion goes long when RSI is oversold and short when
// overbought. Grounded on the teacher's MeanReversionStrategy thresholds.
type RsiMeanReversion struct {
	OversoldLevel   float64 `json:"oversoldLevel"`
	OverboughtLevel float64 `json:"overboughtLevel"`
}

func NewRsiMeanReversion() *RsiMeanReversion {
	return &RsiMeanReversion{OversoldLevel: 30, OverboughtLevel: 70}
}

func (s *RsiMeanReversion) Name() string { return "RsiMeanReversion" }

func (s *RsiMeanReversion) Predict(df *dataframe.DataFrame) []float64 {
	rsi := df.Feature("rsi14")
	out := make([]float64, df.Len())
	for i := range out {
		switch {
		case rsi[i] <= s.OversoldLevel:
			out[i] = 1
		case rsi[i] >= s.OverboughtLevel:
			out[i] = -1
		}
	}
	return out
}

func (s *RsiMeanReversion) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "RSI oversold", "RSI overbought")
}

func (s *RsiMeanReversion) Params() map[string]float64 {
	return map[string]float64{"oversoldLevel": s.OversoldLevel, "overboughtLevel": s.OverboughtLevel}
}

func (s *RsiMeanReversion) SetParam(name string, value float64) {
	switch name {
	case "oversoldLevel":
		s.OversoldLevel = value
	case "overboughtLevel":
		s.OverboughtLevel = value
	}
}

// BollingerReversion fades price back toward the mean once it pierces a
// Bollinger band. Grounded on the teacher's GridStrategy banding idea
// combined with RSIDivergenceStrategy's reversal posture.
type BollingerReversion struct {
	NumStdDev float64 `json:"numStdDev"`
}

func NewBollingerReversion() *BollingerReversion { return &BollingerReversion{NumStdDev: 2.0} }

func (s *BollingerReversion) Name() string { return "BollingerReversion" }

func (s *BollingerReversion) Predict(df *dataframe.DataFrame) []float64 {
	upper := df.Feature("bb_upper")
	lower := df.Feature("bb_lower")
	out := make([]float64, df.Len())
	for i := range out {
		switch {
		case df.Close[i] < lower[i]:
			out[i] = 1
		case df.Close[i] > upper[i]:
			out[i] = -1
		}
	}
	return out
}

func (s *BollingerReversion) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "price below lower band", "price above upper band")
}

func (s *BollingerReversion) Params() map[string]float64 {
	return map[string]float64{"numStdDev": s.NumStdDev}
}

func (s *BollingerReversion) SetParam(name string, value float64) {
	if name == "numStdDev" {
		s.NumStdDev = value
	}
}

// AtrBreakout enters in the direction of a close that breaks out beyond a
// multiple of ATR from the prior close. Grounded on the teacher's
// BreakoutStrategy range-break logic.
type AtrBreakout struct {
	AtrMultiple float64 `json:"atrMultiple"`
}

func NewAtrBreakout() *AtrBreakout { return &AtrBreakout{AtrMultiple: 1.5} }

func (s *AtrBreakout) Name() string { return "AtrBreakout" }

func (s *AtrBreakout) Predict(df *dataframe.DataFrame) []float64 {
	atr := df.Feature("atr14")
	out := make([]float64, df.Len())
	for i := 1; i < df.Len(); i++ {
		threshold := s.AtrMultiple * atr[i]
		move := df.Close[i] - df.Close[i-1]
		switch {
		case move > threshold:
			out[i] = 1
		case move < -threshold:
			out[i] = -1
		}
	}
	return out
}

func (s *AtrBreakout) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "upside ATR breakout", "downside ATR breakout")
}

func (s *AtrBreakout) Params() map[string]float64 {
	return map[string]float64{"atrMultiple": s.AtrMultiple}
}

func (s *AtrBreakout) SetParam(name string, value float64) {
	if name == "atrMultiple" {
		s.AtrMultiple = value
	}
}

// VolatilitySqueeze stands aside while the Bollinger bands are squeezed
// (current width at or below the threshold and every bar in the lookback
// within 1.5x of it) and otherwise trades a close beyond the previous bar's
// upper or lower band. A preceding squeeze is not required for a signal.
// Grounded on the teacher's GridStrategy level-spacing concept
// generalized from static grid levels to a volatility-adaptive band.
type VolatilitySqueeze struct {
	SqueezeThresholdPct float64 `json:"squeezeThresholdPct"`
	LookbackBars        float64 `json:"lookbackBars"`
}

func NewVolatilitySqueeze() *VolatilitySqueeze {
	return &VolatilitySqueeze{SqueezeThresholdPct: 0.02, LookbackBars: 20}
}

func (s *VolatilitySqueeze) Name() string { return "VolatilitySqueeze" }

func (s *VolatilitySqueeze) Predict(df *dataframe.DataFrame) []float64 {
	upper := df.Feature("bb_upper")
	lower := df.Feature("bb_lower")
	mid := df.Feature("bb_mid")
	lookback := int(s.LookbackBars)
	out := make([]float64, df.Len())
	for i := 1; i < df.Len(); i++ {
		if mid[i] == 0 {
			continue
		}
		width := (upper[i] - lower[i]) / mid[i]
		start := i - lookback
		if start < 0 {
			start = 0
		}
		squeezed := true
		for j := start; j < i; j++ {
			if mid[j] == 0 {
				continue
			}
			if (upper[j]-lower[j])/mid[j] > s.SqueezeThresholdPct*1.5 {
				squeezed = false
				break
			}
		}
		if width <= s.SqueezeThresholdPct && squeezed {
			continue
		}
		switch {
		case df.Close[i] > upper[i-1]:
			out[i] = 1
		case df.Close[i] < lower[i-1]:
			out[i] = -1
		}
	}
	return out
}

func (s *VolatilitySqueeze) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "squeeze breakout upward", "squeeze breakout downward")
}

func (s *VolatilitySqueeze) Params() map[string]float64 {
	return map[string]float64{"squeezeThresholdPct": s.SqueezeThresholdPct, "lookbackBars": s.LookbackBars}
}

func (s *VolatilitySqueeze) SetParam(name string, value float64) {
	switch name {
	case "squeezeThresholdPct":
		s.SqueezeThresholdPct = value
	case "lookbackBars":
		s.LookbackBars = value
	}
}

// MacdTrend trades the sign of the MACD histogram. New member of the
// catalogue (not a direct teacher strategy); grounded on the teacher's EMA
// incremental calculator in pkg/utils (MACD = EMA-fast minus EMA-slow).
type MacdTrend struct {
	FastPeriod   float64 `json:"fastPeriod"`
	SlowPeriod   float64 `json:"slowPeriod"`
	SignalPeriod float64 `json:"signalPeriod"`
}

func NewMacdTrend() *MacdTrend {
	return &MacdTrend{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}
}

func (s *MacdTrend) Name() string { return "MacdTrend" }

func (s *MacdTrend) Predict(df *dataframe.DataFrame) []float64 {
	hist := df.Feature("macd_hist")
	out := make([]float64, df.Len())
	for i := range out {
		out[i] = clampSignal(hist[i])
	}
	return out
}

func (s *MacdTrend) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "MACD histogram positive", "MACD histogram negative")
}

func (s *MacdTrend) Params() map[string]float64 {
	return map[string]float64{"fastPeriod": s.FastPeriod, "slowPeriod": s.SlowPeriod, "signalPeriod": s.SignalPeriod}
}

func (s *MacdTrend) SetParam(name string, value float64) {
	switch name {
	case "fastPeriod":
		s.FastPeriod = value
	case "slowPeriod":
		s.SlowPeriod = value
	case "signalPeriod":
		s.SignalPeriod = value
	}
}

// ObvTrend trades the direction of on-balance volume relative to its own
// moving average, using volume flow as confirmation. Grounded on the
// teacher's VWAPReversionStrategy volume-weighted posture, retargeted from
// reversion to trend-following since OBV divergence from price is itself a
// trend signal.
type ObvTrend struct {
	SmoothingPeriod float64 `json:"smoothingPeriod"`
}

func NewObvTrend() *ObvTrend { return &ObvTrend{SmoothingPeriod: 20} }

func (s *ObvTrend) Name() string { return "ObvTrend" }

func (s *ObvTrend) Predict(df *dataframe.DataFrame) []float64 {
	obv := df.Feature("obv")
	obvMA := SMAFloat(obv, int(s.SmoothingPeriod))
	out := make([]float64, df.Len())
	for i := range out {
		out[i] = clampSignal(obv[i] - obvMA[i])
	}
	return out
}

func (s *ObvTrend) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "OBV above its average", "OBV below its average")
}

func (s *ObvTrend) Params() map[string]float64 {
	return map[string]float64{"smoothingPeriod": s.SmoothingPeriod}
}

func (s *ObvTrend) SetParam(name string, value float64) {
	if name == "smoothingPeriod" {
		s.SmoothingPeriod = value
	}
}

// PriceMomentum trades the sign of the rate of change over a lookback
// window. Grounded directly on the teacher's MomentumStrategy.
type PriceMomentum struct {
	LookbackBars   float64 `json:"lookbackBars"`
	ThresholdPct   float64 `json:"thresholdPct"`
}

func NewPriceMomentum() *PriceMomentum {
	return &PriceMomentum{LookbackBars: 10, ThresholdPct: 0.01}
}

func (s *PriceMomentum) Name() string { return "PriceMomentum" }

func (s *PriceMomentum) Predict(df *dataframe.DataFrame) []float64 {
	lookback := int(s.LookbackBars)
	out := make([]float64, df.Len())
	for i := lookback; i < df.Len(); i++ {
		prior := df.Close[i-lookback]
		if prior == 0 {
			continue
		}
		roc := (df.Close[i] - prior) / prior
		switch {
		case roc > s.ThresholdPct:
			out[i] = 1
		case roc < -s.ThresholdPct:
			out[i] = -1
		}
	}
	return out
}

func (s *PriceMomentum) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "positive momentum", "negative momentum")
}

func (s *PriceMomentum) Params() map[string]float64 {
	return map[string]float64{"lookbackBars": s.LookbackBars, "thresholdPct": s.ThresholdPct}
}

func (s *PriceMomentum) SetParam(name string, value float64) {
	switch name {
	case "lookbackBars":
		s.LookbackBars = value
	case "thresholdPct":
		s.ThresholdPct = value
	}
}

// AdaptiveMaCrossover trades a short/long SMA crossover where the short
// period adapts to recent volatility (it lengthens as ATR relative to price
// rises: shorter in calm markets, longer in volatile ones). Grounded on the teacher's DCAStrategy periodic-averaging
// idea, generalized from fixed-interval accumulation to an adaptive moving
// average.
type AdaptiveMaCrossover struct {
	BasePeriod    float64 `json:"basePeriod"`
	LongPeriod    float64 `json:"longPeriod"`
	VolAdaptScale float64 `json:"volAdaptScale"`
}

func NewAdaptiveMaCrossover() *AdaptiveMaCrossover {
	return &AdaptiveMaCrossover{BasePeriod: 10, LongPeriod: 40, VolAdaptScale: 5}
}

func (s *AdaptiveMaCrossover) Name() string { return "AdaptiveMaCrossover" }

func (s *AdaptiveMaCrossover) Predict(df *dataframe.DataFrame) []float64 {
	atr := df.Feature("atr14")
	long := SMAFloat(df.Close, int(s.LongPeriod))
	out := make([]float64, df.Len())
	for i := range out {
		if df.Close[i] == 0 {
			continue
		}
		volPct := atr[i] / df.Close[i]
		adaptivePeriod := int(s.BasePeriod + s.VolAdaptScale*volPct*100)
		if adaptivePeriod < 2 {
			adaptivePeriod = 2
		}
		start := i - adaptivePeriod + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		for j := start; j <= i; j++ {
			sum += df.Close[j]
		}
		shortMA := sum / float64(i-start+1)
		out[i] = clampSignal(shortMA - long[i])
	}
	return out
}

func (s *AdaptiveMaCrossover) Explain(df *dataframe.DataFrame) []string {
	sig := s.Predict(df)
	return explainFromSignal(sig, "adaptive short MA above long MA", "adaptive short MA below long MA")
}

func (s *AdaptiveMaCrossover) Params() map[string]float64 {
	return map[string]float64{"basePeriod": s.BasePeriod, "longPeriod": s.LongPeriod, "volAdaptScale": s.VolAdaptScale}
}

func (s *AdaptiveMaCrossover) SetParam(name string, value float64) {
	switch name {
	case "basePeriod":
		s.BasePeriod = value
	case "longPeriod":
		s.LongPeriod = value
	case "volAdaptScale":
		s.VolAdaptScale = value
	}
}

// SMAFloat is a small local moving average used by strategies that need a
// period derived at predict time (so it cannot be precomputed as a shared
// dataframe feature column).
func SMAFloat(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 {
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

func explainFromSignal(sig []float64, longReason, shortReason string) []string {
	out := make([]string, len(sig))
	for i, v := range sig {
		switch {
		case v > 0:
			out[i] = longReason
		case v < 0:
			out[i] = shortReason
		default:
			out[i] = "no signal"
		}
	}
	return out
}
