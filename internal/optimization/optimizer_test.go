package optimization_test

import (
	"testing"

	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
	"github.com/atlas-desktop/krypto-paper/internal/optimization"
	"github.com/atlas-desktop/krypto-paper/internal/strategy"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
)

// quadraticStrategy exposes a single tunable parameter scored by a known
// quadratic objective, so the hill climber can be checked (no regression of
// the initial score, final parameters reproducing the returned score)
// without depending on the real strategy catalogue's indicator plumbing.
type quadraticStrategy struct {
	x float64
}

func (q *quadraticStrategy) Name() string                               { return "quadraticStrategy" }
func (q *quadraticStrategy) Predict(df *dataframe.DataFrame) []float64  { return nil }
func (q *quadraticStrategy) Explain(df *dataframe.DataFrame) []string   { return nil }
func (q *quadraticStrategy) Params() map[string]float64                 { return map[string]float64{"x": q.x} }
func (q *quadraticStrategy) SetParam(name string, value float64) {
	if name == "x" {
		q.x = value
	}
}

func TestOptimizeImprovesOrMatchesInitialScore(t *testing.T) {
	s := &quadraticStrategy{x: 1}
	objective := func(st strategy.Strategy) types.BacktestResult {
		x := st.Params()["x"]
		score := 10 - (x-4)*(x-4)
		return types.BacktestResult{SharpeRatio: score}
	}

	initial := objective(s)

	opt := optimization.New(200, 0.7)
	best := opt.Optimize(s, objective)

	if best.SharpeRatio < initial.SharpeRatio {
		t.Fatalf("expected optimized score >= initial score, initial=%f best=%f", initial.SharpeRatio, best.SharpeRatio)
	}
}

func TestOptimizeLeavesStrategyHoldingBestParams(t *testing.T) {
	s := &quadraticStrategy{x: 1}
	objective := func(st strategy.Strategy) types.BacktestResult {
		x := st.Params()["x"]
		score := 10 - (x-4)*(x-4)
		return types.BacktestResult{SharpeRatio: score}
	}

	best := optimization.New(200, 0.7).Optimize(s, objective)
	final := objective(s)

	if final.SharpeRatio != best.SharpeRatio {
		t.Fatalf("expected the strategy's final parameters to reproduce the returned best score, final=%f best=%f", final.SharpeRatio, best.SharpeRatio)
	}
}

func TestOptimizeZeroIterationsReturnsInitialScore(t *testing.T) {
	s := &quadraticStrategy{x: 1}
	objective := func(st strategy.Strategy) types.BacktestResult {
		return types.BacktestResult{SharpeRatio: 42}
	}

	best := optimization.New(0, 0.7).Optimize(s, objective)
	if best.SharpeRatio != 42 {
		t.Fatalf("expected 0 iterations to return the initial score unchanged, got %f", best.SharpeRatio)
	}
}
