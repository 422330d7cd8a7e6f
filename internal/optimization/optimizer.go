// Package optimization implements the fixed-iteration hill-climb search the
// Strategy Generator runs over each strategy's parameter set. Restyled from
// the teacher's grid/genetic/random-search Optimizer
// (internal/optimization/optimizer.go) into the simpler algorithm the
// original strategy_generator.rs calls via Optimizer::new(iterations, 0.7):
// each round perturbs every tunable parameter by a step scaled by the
// learning rate and keeps the mutation only if it improves the objective.
package optimization

import (
	"math/rand"

	"github.com/atlas-desktop/krypto-paper/internal/strategy"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
)

// ObjectiveFunc scores a strategy instance; higher is better. The Strategy
// Generator supplies one that runs backtester.Run and ranks by Sharpe.
type ObjectiveFunc func(s strategy.Strategy) types.BacktestResult

// Optimizer is a fixed-iteration hill climber.
type Optimizer struct {
	Iterations   int
	LearningRate float64
	rng          *rand.Rand
}

// New constructs an optimizer. learningRate scales each perturbation step as
// a fraction of the parameter's current value.
func New(iterations int, learningRate float64) *Optimizer {
	return &Optimizer{
		Iterations:   iterations,
		LearningRate: learningRate,
		rng:          rand.New(rand.NewSource(1)),
	}
}

// Optimize perturbs s's parameters in place for Iterations rounds, scoring
// each candidate with objective, and returns the best score observed
// (s itself ends the call holding the best-found parameters).
func (o *Optimizer) Optimize(s strategy.Strategy, objective ObjectiveFunc) types.BacktestResult {
	best := objective(s)
	bestParams := cloneParams(s.Params())

	for iter := 0; iter < o.Iterations; iter++ {
		candidate := cloneParams(bestParams)
		for name, value := range candidate {
			step := value * o.LearningRate * (o.rng.Float64()*2 - 1)
			if value == 0 {
				step = o.LearningRate * (o.rng.Float64()*2 - 1)
			}
			candidate[name] = value + step
		}
		for name, value := range candidate {
			s.SetParam(name, value)
		}

		result := objective(s)
		if result.SharpeRatio > best.SharpeRatio {
			best = result
			bestParams = candidate
		}
	}

	for name, value := range bestParams {
		s.SetParam(name, value)
	}
	return best
}

func cloneParams(p map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
