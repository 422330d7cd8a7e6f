// Package strategy implements the closed catalogue of paper-trading
// strategy families and the runtime dispatch table that maps a
// strategy_type discriminator to (deserialize, predict, explain) — a
// registration, not a subclass hierarchy, per the dataframe/dispatch design
// notes this repository is built against.
package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
)

// Strategy is the capability interface every catalogue member implements.
// Predict returns one signal value per row of df, each in {-1, 0, +1}.
// Explain returns a parallel, human-readable reason string per row.
type Strategy interface {
	Name() string
	Predict(df *dataframe.DataFrame) []float64
	Explain(df *dataframe.DataFrame) []string

	// Params/SetParam expose the strategy's tunable float parameters by
	// name so the optimizer can perturb them without knowing the concrete
	// type.
	Params() map[string]float64
	SetParam(name string, value float64)
}

// factory constructs a default-parameter instance of one catalogue member.
type factory func() Strategy

// registry is the closed dispatch table: strategy_type -> constructor.
var registry = map[string]factory{
	"DynamicTrend":        func() Strategy { return NewDynamicTrend() },
	"RsiMeanReversion":     func() Strategy { return NewRsiMeanReversion() },
	"BollingerReversion":   func() Strategy { return NewBollingerReversion() },
	"AtrBreakout":          func() Strategy { return NewAtrBreakout() },
	"VolatilitySqueeze":    func() Strategy { return NewVolatilitySqueeze() },
	"MacdTrend":            func() Strategy { return NewMacdTrend() },
	"ObvTrend":             func() Strategy { return NewObvTrend() },
	"PriceMomentum":        func() Strategy { return NewPriceMomentum() },
	"AdaptiveMaCrossover":  func() Strategy { return NewAdaptiveMaCrossover() },
}

// Types returns every registered strategy_type discriminator, in the fixed
// order the Strategy Generator iterates them.
func Types() []string {
	return []string{
		"DynamicTrend", "RsiMeanReversion", "BollingerReversion", "AtrBreakout",
		"VolatilitySqueeze", "MacdTrend", "ObvTrend", "PriceMomentum",
		"AdaptiveMaCrossover",
	}
}

// New constructs a default-parameter instance of the named strategy type.
func New(strategyType string) (Strategy, bool) {
	f, ok := registry[strategyType]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Deserialize constructs a strategy instance of strategyType and loads its
// parameters from the opaque JSON blob persisted on the Strategy row. An
// unknown strategyType returns (nil, false, nil) so callers can log a
// warning and continue rather than fail the whole evaluation pipeline.
func Deserialize(strategyType string, parameters []byte) (Strategy, bool, error) {
	s, ok := New(strategyType)
	if !ok {
		return nil, false, nil
	}
	if len(parameters) == 0 {
		return s, true, nil
	}
	if err := json.Unmarshal(parameters, s); err != nil {
		return nil, true, fmt.Errorf("unmarshal %s parameters: %w", strategyType, err)
	}
	return s, true, nil
}

// clampSignal normalizes a raw comparison result into the closed
// {-1, 0, +1} signal domain.
func clampSignal(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
