// Package generator implements the Strategy Generator: a batch job that
// optimizes every (symbol, interval, strategy_type) triple against recent
// history, admits candidates clearing a minimum trade count and positive
// return, ranks by Sharpe, and persists the top N.
//
// Grounded directly on original_source/backend/src/services/strategy_generator.rs
// for the triple loop, admission filter, and ranking; the equity-curve
// downsampling and metrics-JSON shape mirror the teacher's pkg/utils report
// builders (internal/optimization/optimizer.go's result-reporting style).
package generator

import (
	"encoding/json"
	"context"
	"sort"

	"github.com/atlas-desktop/krypto-paper/internal/apperr"
	"github.com/atlas-desktop/krypto-paper/internal/backtester"
	"github.com/atlas-desktop/krypto-paper/internal/dbstore"
	"github.com/atlas-desktop/krypto-paper/internal/features"
	"github.com/atlas-desktop/krypto-paper/internal/marketdata"
	"github.com/atlas-desktop/krypto-paper/internal/optimization"
	"github.com/atlas-desktop/krypto-paper/internal/strategy"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	minAdmissibleTrades        = 10
	defaultTopN                = 10
	defaultCandleLookback      = 1000
	defaultOptimizerIterations = 50
	optimizerLearnRate         = 0.7
)

// Generator batch-optimizes the strategy catalogue against live history.
type Generator struct {
	store  *dbstore.Store
	market *marketdata.Adapter
	logger *zap.Logger
}

// New constructs a Generator.
func New(store *dbstore.Store, market *marketdata.Adapter, logger *zap.Logger) *Generator {
	return &Generator{store: store, market: market, logger: logger.Named("generator")}
}

// Request describes a generation batch: every strategy type in the catalogue
// is evaluated for each (symbol, interval) pair, and the top TopN admissible
// candidates overall are persisted.
type Request struct {
	Symbols        []string
	Intervals      []string
	TopN           int
	Limit          int
	Iterations     int
	InitialCapital float64
}

type candidate struct {
	symbol       string
	interval     string
	strategyType string
	strat        strategy.Strategy
	result       types.BacktestResult
}

// Generate runs the full triple loop and persists the top candidates.
func (g *Generator) Generate(ctx context.Context, req Request) ([]*types.Strategy, error) {
	if req.TopN <= 0 {
		req.TopN = defaultTopN
	}
	if req.Limit <= 0 {
		req.Limit = defaultCandleLookback
	}
	if req.Iterations <= 0 {
		req.Iterations = defaultOptimizerIterations
	}
	if req.InitialCapital <= 0 {
		req.InitialCapital = 10000
	}

	var candidates []candidate
	for _, symbol := range req.Symbols {
		for _, interval := range req.Intervals {
			df, err := g.market.FetchCandles(ctx, symbol, interval, req.Limit)
			if err != nil {
				g.logger.Warn("fetch candles for generation", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			features.NewEngine().AddTechnicals(df)

			for _, strategyType := range strategy.Types() {
				strat, ok := strategy.New(strategyType)
				if !ok {
					continue
				}
				opt := optimization.New(req.Iterations, optimizerLearnRate)
				result := opt.Optimize(strat, func(s strategy.Strategy) types.BacktestResult {
					signal := s.Predict(df)
					return backtester.Run(df.Close, signal, req.InitialCapital)
				})

				if !admissible(result) {
					continue
				}
				candidates = append(candidates, candidate{
					symbol:       symbol,
					interval:     interval,
					strategyType: strategyType,
					strat:        strat,
					result:       result,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].result.SharpeRatio > candidates[j].result.SharpeRatio
	})
	if len(candidates) > req.TopN {
		candidates = candidates[:req.TopN]
	}

	out := make([]*types.Strategy, 0, len(candidates))
	for _, c := range candidates {
		st, err := g.persist(ctx, c)
		if err != nil {
			g.logger.Error("persist generated strategy", zap.Error(err))
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func admissible(r types.BacktestResult) bool {
	return r.TotalTrades > minAdmissibleTrades && r.TotalReturnPct > 0
}

func (g *Generator) persist(ctx context.Context, c candidate) (*types.Strategy, error) {
	params, err := json.Marshal(c.strat.Params())
	if err != nil {
		return nil, apperr.NewStrategy("marshal params", err)
	}

	metrics := map[string]any{
		"sharpe":           c.result.SharpeRatio,
		"total_return_pct": c.result.TotalReturnPct,
		"max_drawdown_pct": c.result.MaxDrawdownPct,
		"win_rate":         c.result.WinRate,
		"profit_factor":    c.result.ProfitFactor,
		"trades":           c.result.TotalTrades,
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return nil, apperr.NewStrategy("marshal metrics", err)
	}

	curveJSON, err := json.Marshal(backtester.Downsample(c.result.EquityCurve))
	if err != nil {
		return nil, apperr.NewStrategy("marshal equity curve", err)
	}

	st := &types.Strategy{
		Name:                c.symbol + " " + c.interval + " " + c.strat.Name(),
		StrategyType:        c.strategyType,
		Symbol:              c.symbol,
		Interval:            c.interval,
		Parameters:          params,
		PerformanceMetrics:  metricsJSON,
		BacktestCurve:       curveJSON,
		KellyFraction:       decimal.NewNullDecimal(decimal.NewFromFloat(c.result.KellyFraction)),
	}
	if err := g.store.InsertStrategy(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
